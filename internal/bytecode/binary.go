// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package bytecode

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"time"
)

// Magic is the sentinel prefix identifying a compiled via bytecode file.
// "run FILE" dispatches straight to the VM, skipping the front end, when
// the file begins with this prefix.
const Magic = "%viac%"

// FormatVersion is bumped whenever the binary layout changes incompatibly.
const FormatVersion uint32 = 1

const platformInfoLen = 32
const flagsLen = 16

// IsCompiled reports whether b begins with the bytecode magic prefix.
func IsCompiled(b []byte) bool {
	return len(b) >= len(Magic) && string(b[:len(Magic)]) == Magic
}

// Write encodes chunk as a %viac% binary program to w. sourceHash is the
// 32-byte hash of the source text the chunk was compiled from (used by
// tooling to detect a stale bytecode cache; the VM itself never checks it).
func Write(w io.Writer, chunk *Chunk, sourceHash [32]byte, platform, flags string) error {
	var code bytes.Buffer
	for _, in := range chunk.Code {
		var rec [7]byte
		rec[0] = byte(in.Op)
		binary.LittleEndian.PutUint16(rec[1:3], in.A)
		binary.LittleEndian.PutUint16(rec[3:5], in.B)
		binary.LittleEndian.PutUint16(rec[5:7], in.C)
		code.Write(rec[:])
	}

	var meta bytes.Buffer
	if err := writeConsts(&meta, chunk.Consts); err != nil {
		return err
	}
	if err := writeGlobals(&meta, chunk.Globals); err != nil {
		return err
	}
	if err := writeProtos(&meta, chunk.FuncProtos); err != nil {
		return err
	}

	var out bytes.Buffer
	out.WriteString(Magic)
	binary.Write(&out, binary.LittleEndian, FormatVersion)
	binary.Write(&out, binary.LittleEndian, uint64(time.Now().Unix()))
	out.Write(sourceHash[:])
	out.Write(fixedWidth(platform, platformInfoLen))
	out.Write(fixedWidth(flags, flagsLen))

	// + offset, code length and meta length fields + checksum + metadata section
	codeOffset := uint64(out.Len() + 8 + 8 + 8 + 4 + meta.Len())
	binary.Write(&out, binary.LittleEndian, codeOffset)
	binary.Write(&out, binary.LittleEndian, uint64(code.Len()))
	binary.Write(&out, binary.LittleEndian, uint64(meta.Len()))

	checksum := crc32.ChecksumIEEE(append(append([]byte{}, meta.Bytes()...), code.Bytes()...))
	binary.Write(&out, binary.LittleEndian, checksum)

	out.Write(meta.Bytes())
	out.Write(code.Bytes())
	binary.Write(&out, binary.LittleEndian, checksum)

	_, err := w.Write(out.Bytes())
	return err
}

func fixedWidth(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

// Read decodes a %viac% binary program written by Write.
func Read(r io.Reader) (*Chunk, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !IsCompiled(data) {
		return nil, fmt.Errorf("bytecode: missing %q magic prefix", Magic)
	}
	buf := bytes.NewReader(data[len(Magic):])

	var version uint32
	var timestamp uint64
	if err := binary.Read(buf, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("bytecode: reading format version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d", version)
	}
	if err := binary.Read(buf, binary.LittleEndian, &timestamp); err != nil {
		return nil, fmt.Errorf("bytecode: reading timestamp: %w", err)
	}

	var sourceHash [32]byte
	if _, err := io.ReadFull(buf, sourceHash[:]); err != nil {
		return nil, fmt.Errorf("bytecode: reading source hash: %w", err)
	}
	if _, err := buf.Seek(int64(platformInfoLen+flagsLen), io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("bytecode: skipping platform/flags fields: %w", err)
	}

	var codeOffset, codeLen, metaLen uint64
	var checksum uint32
	for _, f := range []*uint64{&codeOffset, &codeLen, &metaLen} {
		if err := binary.Read(buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("bytecode: reading section header: %w", err)
		}
	}
	if err := binary.Read(buf, binary.LittleEndian, &checksum); err != nil {
		return nil, fmt.Errorf("bytecode: reading checksum: %w", err)
	}

	metaBytes := make([]byte, metaLen)
	if _, err := io.ReadFull(buf, metaBytes); err != nil {
		return nil, fmt.Errorf("bytecode: reading metadata section: %w", err)
	}
	codeBytes := make([]byte, codeLen)
	if _, err := io.ReadFull(buf, codeBytes); err != nil {
		return nil, fmt.Errorf("bytecode: reading code section: %w", err)
	}
	var trailer uint32
	if err := binary.Read(buf, binary.LittleEndian, &trailer); err != nil {
		return nil, fmt.Errorf("bytecode: reading trailing checksum: %w", err)
	}

	want := crc32.ChecksumIEEE(append(append([]byte{}, metaBytes...), codeBytes...))
	if checksum != want || trailer != want {
		return nil, fmt.Errorf("bytecode: checksum mismatch, file is corrupt")
	}

	if len(codeBytes)%7 != 0 {
		return nil, fmt.Errorf("bytecode: code section length %d is not a multiple of 7", len(codeBytes))
	}
	chunk := &Chunk{}
	for i := 0; i < len(codeBytes); i += 7 {
		chunk.Code = append(chunk.Code, Instruction{
			Op: Op(codeBytes[i]),
			A:  binary.LittleEndian.Uint16(codeBytes[i+1 : i+3]),
			B:  binary.LittleEndian.Uint16(codeBytes[i+3 : i+5]),
			C:  binary.LittleEndian.Uint16(codeBytes[i+5 : i+7]),
		})
	}

	metaBuf := bytes.NewReader(metaBytes)
	if chunk.Consts, err = readConsts(metaBuf); err != nil {
		return nil, err
	}
	if chunk.Globals, err = readGlobals(metaBuf); err != nil {
		return nil, err
	}
	if chunk.FuncProtos, err = readProtos(metaBuf); err != nil {
		return nil, err
	}
	return chunk, nil
}

// SourceHash hashes source text the way Write's sourceHash parameter
// expects.
func SourceHash(source []byte) [32]byte {
	return sha256.Sum256(source)
}

// ---------------------------------------------------------------------------
// Metadata section encoding (constants, globals, function prototypes) —
// not named as separate fields in the wire format description, but an
// executable standalone bytecode file cannot be re-run without them, so
// they are written as their own section between the header and the
// instruction bytes, with its own length field (see metaLen above); the code
// offset and length in the header cover the instruction bytes only.
// ---------------------------------------------------------------------------

func writeConsts(w *bytes.Buffer, consts []Const) error {
	binary.Write(w, binary.LittleEndian, uint32(len(consts)))
	for _, c := range consts {
		w.WriteByte(byte(c.Kind))
		binary.Write(w, binary.LittleEndian, c.I)
		binary.Write(w, binary.LittleEndian, c.F)
		writeString(w, c.S)
	}
	return nil
}

func readConsts(r *bytes.Reader) ([]Const, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("bytecode: reading const count: %w", err)
	}
	out := make([]Const, 0, n)
	for i := uint32(0); i < n; i++ {
		kindByte, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("bytecode: reading const %d kind: %w", i, err)
		}
		var c Const
		c.Kind = ConstKind(kindByte)
		if err := binary.Read(r, binary.LittleEndian, &c.I); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &c.F); err != nil {
			return nil, err
		}
		if c.S, err = readString(r); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func writeGlobals(w *bytes.Buffer, globals []GlobalDecl) error {
	binary.Write(w, binary.LittleEndian, uint32(len(globals)))
	for _, g := range globals {
		writeString(w, g.Name)
	}
	return nil
}

func readGlobals(r *bytes.Reader) ([]GlobalDecl, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("bytecode: reading global count: %w", err)
	}
	out := make([]GlobalDecl, 0, n)
	for i := uint32(0); i < n; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, GlobalDecl{Name: name})
	}
	return out, nil
}

func writeProtos(w *bytes.Buffer, protos []FuncProto) error {
	binary.Write(w, binary.LittleEndian, uint32(len(protos)))
	for _, p := range protos {
		writeString(w, p.Name)
		binary.Write(w, binary.LittleEndian, uint32(p.EntryPC))
		binary.Write(w, binary.LittleEndian, uint32(p.NumParams))
		binary.Write(w, binary.LittleEndian, uint32(p.NumLocals))
		if p.Vararg {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
		binary.Write(w, binary.LittleEndian, uint32(len(p.Upvalues)))
		for _, u := range p.Upvalues {
			if u.FromLocal {
				w.WriteByte(1)
			} else {
				w.WriteByte(0)
			}
			binary.Write(w, binary.LittleEndian, uint32(u.Index))
		}
	}
	return nil
}

func readProtos(r *bytes.Reader) ([]FuncProto, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("bytecode: reading func proto count: %w", err)
	}
	out := make([]FuncProto, 0, n)
	for i := uint32(0); i < n; i++ {
		var p FuncProto
		var err error
		if p.Name, err = readString(r); err != nil {
			return nil, err
		}
		var entry, params, locals, nUp uint32
		if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &params); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &locals); err != nil {
			return nil, err
		}
		varargByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &nUp); err != nil {
			return nil, err
		}
		p.EntryPC, p.NumParams, p.NumLocals = int(entry), int(params), int(locals)
		p.Vararg = varargByte != 0
		for j := uint32(0); j < nUp; j++ {
			fromLocalByte, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			var idx uint32
			if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
				return nil, err
			}
			p.Upvalues = append(p.Upvalues, UpvalDesc{FromLocal: fromLocalByte != 0, Index: int(idx)})
		}
		out = append(out, p)
	}
	return out, nil
}

func writeString(w *bytes.Buffer, s string) {
	binary.Write(w, binary.LittleEndian, uint32(len(s)))
	w.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("bytecode: reading string length: %w", err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("bytecode: reading string body: %w", err)
	}
	return string(b), nil
}
