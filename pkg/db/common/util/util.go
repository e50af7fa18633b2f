package util

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// zstd encoders and decoders used through EncodeAll/DecodeAll are safe for concurrent use, so a
// single instance of each is shared by all connections.
var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) { return zstd.NewWriter(nil) })
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) { return zstd.NewReader(nil) })
)

func Marshal(v any, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	je := json.NewEncoder(&buf)
	je.SetEscapeHTML(false)
	if err := je.Encode(v); err != nil {
		return nil, errors.Wrap(err, "json encode")
	}

	if !compress {
		return buf.Bytes(), nil
	}

	zw, err := encoder()
	if err != nil {
		return nil, errors.Wrap(err, "new zstd writer")
	}
	return zw.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len())), nil
}

func Unmarshal(data []byte, compress bool, v any) error {
	if compress {
		zr, err := decoder()
		if err != nil {
			return errors.Wrap(err, "new zstd reader")
		}
		bs, err := zr.DecodeAll(data, nil)
		if err != nil {
			return errors.Wrap(err, "zstd decode")
		}
		data = bs
	}

	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "json unmarshal")
	}

	return nil
}
