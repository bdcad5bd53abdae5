// Package codec turns requests, responses and state dumps into the byte
// payloads stored in the input log, the output log and checkpoints.
package codec

import (
	"bytes"

	"sequencer/domain/message"
	"sequencer/infra/memory"

	json "github.com/goccy/go-json"
)

var buffers = memory.NewPool(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) { b.Reset() },
)

// encode marshals v into a freshly allocated slice. The scratch buffer
// goes back to the pool, the returned bytes do not alias it.
func encode(v any) ([]byte, error) {
	buf := buffers.Get()
	defer buffers.Put(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder terminates every value with a newline.
	out := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return bytes.Clone(out), nil
}

func EncodeRequest(r *message.Request) ([]byte, error) {
	return encode(r)
}

// DecodeRequest fails on anything that is not a single JSON request
// object. Callers turn the failure into an Unparseable request.
func DecodeRequest(data []byte) (message.Request, error) {
	var r message.Request
	err := json.Unmarshal(data, &r)
	return r, err
}

func EncodeResponse(r *message.Response) ([]byte, error) {
	return encode(r)
}

func DecodeResponse(data []byte) (message.Response, error) {
	var r message.Response
	err := json.Unmarshal(data, &r)
	return r, err
}

func EncodeState(d *message.StateDump) ([]byte, error) {
	return encode(d)
}

func DecodeState(data []byte) (message.StateDump, error) {
	var d message.StateDump
	err := json.Unmarshal(data, &d)
	return d, err
}

// Marshal and Unmarshal are the generic forms used by the gRPC codec
// and the log dump tool.
func Marshal(v any) ([]byte, error) {
	return encode(v)
}

func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Comparable returns the encoding of r with the fields that legitimately
// differ between two runs cleared. Two responses to the same request at
// the same sequence must have equal Comparable encodings.
func Comparable(r message.Response) ([]byte, error) {
	r.CreatedAt = 0
	r.ProcessingTime = 0
	return encode(&r)
}
