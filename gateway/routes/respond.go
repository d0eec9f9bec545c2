package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"staychain/gateway/middleware"
)

const requestBodyLimit = 1 << 20 // 1 MiB

var errCallerRequired = errors.New("caller is required: authenticate or supply a caller field")

type errorBody struct {
	Error string          `json:"error"`
	Code  int             `json:"code,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func writeResult(w http.ResponseWriter, status int, result json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	_, _ = w.Write(result)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	payload, marshalErr := json.Marshal(errorBody{Error: message})
	if marshalErr != nil {
		payload = []byte(`{"error":"internal error"}`)
	}
	_, _ = w.Write(payload)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadRequest, err)
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadGateway, fmt.Errorf("node unavailable: %w", err))
}

// writeRPCError surfaces the node's error payload, keeping the RPC code and
// any attached data (booking ids from a failed payment leg, for example).
func writeRPCError(w http.ResponseWriter, upstreamStatus int, rpcErr *RPCError) {
	status := upstreamStatus
	if status < http.StatusBadRequest {
		status = statusForCode(rpcErr.Code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload, err := json.Marshal(errorBody{Error: rpcErr.Message, Code: rpcErr.Code, Data: rpcErr.Data})
	if err != nil {
		payload = []byte(`{"error":"internal error"}`)
	}
	_, _ = w.Write(payload)
}

func statusForCode(code int) int {
	switch code {
	case -32001:
		return http.StatusUnauthorized
	case -32004:
		return http.StatusNotFound
	case -32009:
		return http.StatusConflict
	case -32011:
		return http.StatusServiceUnavailable
	case -32020:
		return http.StatusTooManyRequests
	case -32601:
		return http.StatusNotFound
	case -32600, -32602, -32700:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func decodeBody(r *http.Request, out interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, requestBodyLimit))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// callerAddress resolves the address the gateway acts for. Authenticated
// requests use the token subject; the body field is only honoured when auth
// is disabled, so clients cannot impersonate other addresses.
func callerAddress(r *http.Request, bodyCaller string) (string, error) {
	if subject := middleware.SubjectFromContext(r.Context()); subject != "" {
		return subject, nil
	}
	if trimmed := strings.TrimSpace(bodyCaller); trimmed != "" {
		return trimmed, nil
	}
	return "", errCallerRequired
}

func parseUintParam(r *http.Request, name string) (uint64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return value, nil
}

func parseUintQuery(r *http.Request, name string) (uint64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%s query parameter is required", name)
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s query parameter", name)
	}
	return value, nil
}

func forward(w http.ResponseWriter, r *http.Request, client *Client, method string, params interface{}) {
	result, status, rpcErr, err := client.Call(r.Context(), method, params)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if rpcErr != nil {
		writeRPCError(w, status, rpcErr)
		return
	}
	writeResult(w, http.StatusOK, result)
}
