package store

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/rotisserie/eris"
)

// codec optionally zlib-compresses stored payloads. Decode sniffs the zlib
// header so records written while compression was toggled the other way
// still read back.
type codec struct {
	compress bool
	level    int
}

func newCodec(compress bool, level int) codec {
	if level < zlib.BestSpeed || level > zlib.BestCompression {
		level = zlib.DefaultCompression
	}
	return codec{compress: compress, level: level}
}

func (c codec) Encode(data []byte) ([]byte, error) {
	if !c.compress {
		return data, nil
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, eris.Wrap(err, "codec: new writer")
	}
	if _, err := w.Write(data); err != nil {
		return nil, eris.Wrap(err, "codec: compress")
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "codec: flush")
	}
	return buf.Bytes(), nil
}

func (c codec) Decode(data []byte) ([]byte, error) {
	if !looksCompressed(data) {
		return data, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "codec: new reader")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "codec: decompress")
	}
	return out, nil
}

// looksCompressed checks the two-byte zlib header (0x78 CMF plus a FLG byte
// making the pair divisible by 31). JSON payloads start with '{' or '[' and
// never match.
func looksCompressed(data []byte) bool {
	if len(data) < 2 || data[0] != 0x78 {
		return false
	}
	return (uint(data[0])<<8|uint(data[1]))%31 == 0
}
