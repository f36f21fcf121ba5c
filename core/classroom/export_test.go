package classroom

// SetGenerateCode replaces the join code generator.
func SetGenerateCode(gen func() (string, error)) (restore func()) {
	orig := generateCode
	generateCode = gen
	return func() { generateCode = orig }
}
