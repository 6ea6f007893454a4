package codec

import (
	"io"

	"github.com/bytedance/sonic"
)

var jsonConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return jsonConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return jsonConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return jsonConfig.Unmarshal(data, v)
}

// NewEncoder returns a streaming JSON encoder writing one value per line.
func NewEncoder(w io.Writer) sonic.Encoder {
	return jsonConfig.NewEncoder(w)
}
