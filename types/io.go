package types

import (
	"fmt"
	"net/http"
)

// HTTPMethod is the verb of a contract-issued HTTP request. Contracts encode
// it as an integer.
type HTTPMethod int

const (
	MethodGet HTTPMethod = iota
	MethodPut
	MethodPost
	MethodPatch
	MethodDelete
)

func (m HTTPMethod) String() string {
	switch m {
	case MethodGet:
		return http.MethodGet
	case MethodPut:
		return http.MethodPut
	case MethodPost:
		return http.MethodPost
	case MethodPatch:
		return http.MethodPatch
	case MethodDelete:
		return http.MethodDelete
	}
	return fmt.Sprintf("HTTPMethod(%d)", int(m))
}

type HTTPHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type HTTPRequest struct {
	URI     string       `json:"uri"`
	Method  HTTPMethod   `json:"method"`
	Headers []HTTPHeader `json:"headers"`
	Body    string       `json:"body"`
}

type HTTPResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// HashFunction selects the digest used by hmacWithStorageNonce.
type HashFunction int

const (
	SHA256 HashFunction = iota
	SHA512
	SHA3_256
	SHA3_512
)

func (h HashFunction) String() string {
	switch h {
	case SHA256:
		return "sha256"
	case SHA512:
		return "sha512"
	case SHA3_256:
		return "sha3-256"
	case SHA3_512:
		return "sha3-512"
	}
	return fmt.Sprintf("HashFunction(%d)", int(h))
}
