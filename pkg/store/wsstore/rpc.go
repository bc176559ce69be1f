package wsstore

import (
	"errors"
	"fmt"

	"github.com/buger/jsonparser"

	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/store"
)

// Methods served over the socket.
const (
	MethodSave     = "save"
	MethodRetrieve = "retrieve"
)

// Error codes carried in RPCError.Code.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeBackend        = -32000
	CodeNoCollection   = -32001
	CodeNoIdentifier   = -32002
)

type Params struct {
	Collection string `json:"collection"`
	ID         string `json:"id,omitempty"`
	Content    []byte `json:"content,omitempty"`
}

type RPCRequest struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params Params `json:"params"`
}

type RPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type RPCResponse struct {
	ID     string    `json:"id"`
	Error  *RPCError `json:"error,omitempty"`
	Result any       `json:"result,omitempty"`
}

// errorCode classifies err for the wire.
func errorCode(err error) int64 {
	switch {
	case errors.Is(err, constants.ErrNoCollection):
		return CodeNoCollection
	case errors.Is(err, constants.ErrNoIdentifier):
		return CodeNoIdentifier
	default:
		return CodeBackend
	}
}

// asError turns a wire error back into one matching the sentinel it was built from.
func (e *RPCError) asError() error {
	switch e.Code {
	case CodeNoCollection:
		return fmt.Errorf("%w: %s", constants.ErrNoCollection, e.Message)
	case CodeNoIdentifier:
		return fmt.Errorf("%w: %s", constants.ErrNoIdentifier, e.Message)
	default:
		return store.Fault("remote", e)
	}
}

// rawResponse is a response frame decoded lazily: the id and the error are
// peeked with jsonparser, the result is decoded only by the caller that wants it.
type rawResponse struct {
	data []byte

	id string

	decodedError bool
	err          *RPCError
}

func (res *rawResponse) resolveID() (string, error) {
	if res.id != "" {
		return res.id, nil
	}
	id, err := jsonparser.GetString(res.data, "id")
	if err != nil {
		return "", err
	}
	res.id = id
	return id, nil
}

// rpcError returns the error object of the frame, or nil.
func (res *rawResponse) rpcError() *RPCError {
	if res.decodedError {
		return res.err
	}
	res.decodedError = true

	value, dataType, _, err := jsonparser.Get(res.data, "error")
	if err != nil || dataType != jsonparser.Object {
		return nil
	}
	res.err = &RPCError{Code: CodeBackend}
	if msg, err := jsonparser.GetString(value, "message"); err == nil {
		res.err.Message = msg
	}
	if code, err := jsonparser.GetInt(value, "code"); err == nil {
		res.err.Code = code
	}
	return res.err
}

// result returns the raw bytes of the result member.
func (res *rawResponse) result() ([]byte, error) {
	value, dataType, _, err := jsonparser.Get(res.data, "result")
	if err != nil {
		return nil, fmt.Errorf("response %s has no result: %w", res.id, err)
	}
	if dataType == jsonparser.String {
		// jsonparser strips the quotes; put them back for the decoder.
		quoted := make([]byte, 0, len(value)+2)
		quoted = append(quoted, '"')
		quoted = append(quoted, value...)
		return append(quoted, '"'), nil
	}
	return value, nil
}
