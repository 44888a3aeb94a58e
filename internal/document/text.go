package document

import "strings"

type textParser struct{}

func (textParser) Parse(raw []byte) (string, error) {
	return strings.TrimSpace(string(raw)), nil
}

func init() {
	RegisterParser("txt", textParser{})
}
