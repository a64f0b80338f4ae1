package score

// Generator produces secret codes by uniform random draws from an alphabet.
// Generator is safe for concurrent use when its Source is.
type Generator struct {
	alphabet string
	length   int
	src      Source
}

// NewGenerator creates a Generator drawing length symbols from alphabet
// using src.
//
// Precondition: alphabet must be non-empty; length must be >= 1; src must be non-nil.
func NewGenerator(alphabet string, length int, src Source) *Generator {
	return &Generator{alphabet: alphabet, length: length, src: src}
}

// Generate returns a new secret code: length independent uniform draws from
// the alphabet, with replacement. Duplicate symbols are allowed by design.
//
// Postcondition: The returned code has exactly length symbols, all from the alphabet.
func (g *Generator) Generate() string {
	code := make([]byte, g.length)
	for i := range code {
		code[i] = g.alphabet[g.src.Intn(len(g.alphabet))]
	}
	return string(code)
}
