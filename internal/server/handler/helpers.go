package handler

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// callerHeader carries the caller identity the execution environment
// authenticated. Every mutating operation requires it.
const callerHeader = "X-Caller-Address"

var hashPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// callerAddress extracts and validates the caller identity header.
func callerAddress(r *http.Request) (common.Address, error) {
	v := strings.TrimSpace(r.Header.Get(callerHeader))
	if v == "" {
		return common.Address{}, fmt.Errorf("missing %s header", callerHeader)
	}
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s is not a valid hex address", callerHeader)
	}
	return common.HexToAddress(v), nil
}

// parseAddress validates and parses a 20-byte hex address.
func parseAddress(v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%q is not a valid hex address", v)
	}
	return common.HexToAddress(v), nil
}

// parseHash validates and parses a 32-byte hex listing id.
func parseHash(v string) (common.Hash, error) {
	if !hashPattern.MatchString(v) {
		return common.Hash{}, fmt.Errorf("%q is not a valid 32-byte hex id", v)
	}
	return common.HexToHash(v), nil
}

// parseBig parses a non-negative decimal integer of arbitrary size. Amounts
// cross the API as strings to preserve 256-bit precision.
func parseBig(v string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a valid decimal integer", v)
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("%q must not be negative", v)
	}
	return n, nil
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
