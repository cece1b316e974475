package speech

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// 火山引擎 SAUC 二进制帧：4 字节头 + 可选序号 + (错误码) + 负载长度 + 负载，均为大端序。
const (
	protocolVersion = 0b0001
	headerWords     = 0b0001
)

type messageType uint8

const (
	msgFullClientRequest  messageType = 0b0001
	msgAudioOnlyRequest   messageType = 0b0010
	msgFullServerResponse messageType = 0b1001
	msgServerAck          messageType = 0b1011
	msgServerError        messageType = 0b1111
)

type frameFlags uint8

const (
	flagNoSequence       frameFlags = 0b0000
	flagPositiveSequence frameFlags = 0b0001
	flagLastNoSequence   frameFlags = 0b0010
	flagNegativeSequence frameFlags = 0b0011
)

const (
	serializeNone uint8 = 0b0000
	serializeJSON uint8 = 0b0001

	compressNone uint8 = 0b0000
	compressGzip uint8 = 0b0001
)

// frame holds a decoded message; Payload is always uncompressed.
type frame struct {
	Type          messageType
	Flags         frameFlags
	Serialization uint8
	Compression   uint8
	Sequence      int32
	ErrorCode     uint32
	Payload       []byte
}

func (f frame) hasSequence() bool {
	seq := f.Flags & 0b0011
	return seq == flagPositiveSequence || seq == flagNegativeSequence
}

func (f frame) last() bool {
	seq := f.Flags & 0b0011
	return seq == flagLastNoSequence || seq == flagNegativeSequence
}

// requestFrame carries the JSON session parameters.
func requestFrame(payload []byte) frame {
	return frame{
		Type:          msgFullClientRequest,
		Flags:         flagNoSequence,
		Serialization: serializeJSON,
		Compression:   compressGzip,
		Payload:       payload,
	}
}

// audioFrame carries one audio packet; the final packet has a negated sequence.
func audioFrame(chunk []byte, sequence int32, last bool) frame {
	f := frame{
		Type:          msgAudioOnlyRequest,
		Flags:         flagPositiveSequence,
		Serialization: serializeNone,
		Compression:   compressGzip,
		Sequence:      sequence,
		Payload:       chunk,
	}
	if last {
		f.Flags = flagNegativeSequence
		f.Sequence = -sequence
	}
	return f
}

func (f frame) marshal() ([]byte, error) {
	payload := f.Payload
	if f.Compression == compressGzip {
		var err error
		if payload, err = gzipBytes(payload); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.Write([]byte{
		protocolVersion<<4 | headerWords,
		uint8(f.Type)<<4 | uint8(f.Flags),
		f.Serialization<<4 | f.Compression,
		0,
	})
	if f.hasSequence() {
		_ = binary.Write(&buf, binary.BigEndian, f.Sequence)
	}
	if f.Type == msgServerError {
		_ = binary.Write(&buf, binary.BigEndian, f.ErrorCode)
	}
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes(), nil
}

func parseFrame(data []byte) (frame, error) {
	r := bytes.NewReader(data)

	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return frame{}, fmt.Errorf("read header: %w", err)
	}
	if version := header[0] >> 4; version != protocolVersion {
		return frame{}, fmt.Errorf("unsupported protocol version: %d", version)
	}
	// header extensions are skipped
	if extra := int(header[0]&0x0F)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return frame{}, fmt.Errorf("read extended header: %w", err)
		}
	}

	f := frame{
		Type:          messageType(header[1] >> 4),
		Flags:         frameFlags(header[1] & 0x0F),
		Serialization: header[2] >> 4,
		Compression:   header[2] & 0x0F,
	}
	if f.hasSequence() {
		if err := binary.Read(r, binary.BigEndian, &f.Sequence); err != nil {
			return frame{}, fmt.Errorf("read sequence: %w", err)
		}
	}
	if f.Type == msgServerError {
		if err := binary.Read(r, binary.BigEndian, &f.ErrorCode); err != nil {
			return frame{}, fmt.Errorf("read error code: %w", err)
		}
	}

	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return frame{}, fmt.Errorf("read payload size: %w", err)
	}
	if int64(size) > int64(r.Len()) {
		return frame{}, fmt.Errorf("payload truncated: want %d bytes, have %d", size, r.Len())
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return frame{}, fmt.Errorf("read payload: %w", err)
	}

	switch f.Compression {
	case compressNone:
	case compressGzip:
		if len(payload) > 0 {
			var err error
			if payload, err = gunzipBytes(payload); err != nil {
				return frame{}, err
			}
		}
	default:
		return frame{}, fmt.Errorf("unsupported compression method: %d", f.Compression)
	}
	f.Payload = payload
	return f, nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("gzip write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader creation failed: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read failed: %w", err)
	}
	return out, nil
}
