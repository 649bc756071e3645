package models

// Input is the per-call context every template is evaluated against, so the
// URL, headers, arguments and body of one request all see the same values.
type Input struct {
	// FileName is the name reported to the endpoint.
	FileName string
	// Input is the placeholder text; empty for text uploads, the source path
	// for file uploads.
	Input string
	// NonceAndKeyHex is the encryption bundle of this call, empty when the
	// profile does not encrypt.
	NonceAndKeyHex string
}

func NewInput(fileName, input, nonceAndKeyHex string) Input {
	return Input{FileName: fileName, Input: input, NonceAndKeyHex: nonceAndKeyHex}
}
