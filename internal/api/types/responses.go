package types

// APIResponse is the envelope of the quality and health endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

// Envelope is the flat body of the sync endpoint: success plus named
// top-level fields such as projects, record or message.
type Envelope map[string]interface{}

// OK returns a success envelope carrying the given key/value pairs.
func OK(kv ...interface{}) Envelope {
	e := Envelope{"success": true}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			e[k] = kv[i+1]
		}
	}
	return e
}

// Fail returns the error envelope {success:false, error:msg}.
func Fail(msg string) Envelope {
	return Envelope{"success": false, "error": msg}
}
