package goOTP

import "github.com/MrEthical07/goOTP/internal"

// CodeGenerator produces the plaintext code for a new record.
type CodeGenerator interface {
	Generate() (string, error)
}

// CodeGeneratorFunc adapts a function to CodeGenerator.
type CodeGeneratorFunc func() (string, error)

func (f CodeGeneratorFunc) Generate() (string, error) {
	return f()
}

// randomCodes draws uniform fixed-width numeric codes from crypto/rand.
type randomCodes struct {
	digits int
}

func (g randomCodes) Generate() (string, error) {
	return internal.NewOTP(g.digits)
}
