// Package ocf serializes the EPUB container: a ZIP archive laid out byte
// by byte so the mimetype contract holds exactly. The first entry must be
// the uncompressed mimetype so its ASCII bytes sit at a fixed offset where
// format sniffers expect them; remaining entries are deflated. Output is
// deterministic for a given entry list.
package ocf

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

const (
	// MimetypeName and MimetypeContent are the fixed first entry of a
	// valid container.
	MimetypeName    = "mimetype"
	MimetypeContent = "application/epub+zip"
)

// Entry is one file to place into the archive, in order. Compress selects
// Deflate; it is ignored for empty data, which is always stored.
type Entry struct {
	Name     string
	Data     []byte
	Compress bool
}

const (
	localHeaderSig   = 0x04034b50
	centralHeaderSig = 0x02014b50
	eocdSig          = 0x06054b50

	versionNeeded = 20
	methodStore   = 0
	methodDeflate = 8

	// Fixed DOS timestamp (1980-01-01 00:00:00) keeps builds
	// byte-identical across runs.
	dosTime = 0
	dosDate = 0x21
)

// record carries the per-entry fields shared by the local and central
// headers.
type record struct {
	name        string
	method      uint16
	crc         uint32
	sizeRaw     uint32
	sizePacked  uint32
	localOffset uint32
}

// Bytes serializes entries into a complete archive held in memory.
func Bytes(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes entries to w. The archive is assembled fully in memory
// and written with a single Write call, so a failure never leaves a
// partial archive that parses. Entries must start with the uncompressed
// mimetype; ZIP64, encryption, and extra fields are not produced.
func Write(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("archive needs at least the mimetype entry")
	}
	if entries[0].Name != MimetypeName {
		return fmt.Errorf("first entry must be %q, got %q", MimetypeName, entries[0].Name)
	}
	if entries[0].Compress {
		return fmt.Errorf("mimetype entry must be stored uncompressed")
	}
	if len(entries) > math.MaxUint16 {
		return fmt.Errorf("too many entries for a plain archive: %d", len(entries))
	}

	var body bytes.Buffer
	records := make([]record, 0, len(entries))

	for _, e := range entries {
		if e.Name == "" {
			return fmt.Errorf("entry with empty name")
		}
		if uint64(len(e.Data)) > math.MaxUint32 {
			return fmt.Errorf("entry %q exceeds plain archive limits", e.Name)
		}

		rec := record{
			name:    e.Name,
			method:  methodStore,
			crc:     crc32.ChecksumIEEE(e.Data),
			sizeRaw: uint32(len(e.Data)),
		}

		packed := e.Data
		if e.Compress && len(e.Data) > 0 {
			deflated, err := deflate(e.Data)
			if err != nil {
				return fmt.Errorf("deflate %q: %w", e.Name, err)
			}
			packed = deflated
			rec.method = methodDeflate
		}
		rec.sizePacked = uint32(len(packed))

		if uint64(body.Len())+uint64(len(packed))+30+uint64(len(e.Name)) > math.MaxUint32 {
			return fmt.Errorf("archive exceeds plain archive limits")
		}
		rec.localOffset = uint32(body.Len())

		writeLocalHeader(&body, rec)
		body.Write(packed)
		records = append(records, rec)
	}

	centralStart := uint32(body.Len())
	for _, rec := range records {
		writeCentralHeader(&body, rec)
	}
	centralSize := uint32(body.Len()) - centralStart
	writeEndRecord(&body, uint16(len(records)), centralSize, centralStart)

	if _, err := w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeLocalHeader emits the 30-byte local file header plus the name.
// Flags stay zero: no data descriptor, sizes and CRC are known up front.
func writeLocalHeader(buf *bytes.Buffer, rec record) {
	var h [30]byte
	le := binary.LittleEndian
	le.PutUint32(h[0:], localHeaderSig)
	le.PutUint16(h[4:], versionNeeded)
	le.PutUint16(h[6:], 0) // general purpose flags
	le.PutUint16(h[8:], rec.method)
	le.PutUint16(h[10:], dosTime)
	le.PutUint16(h[12:], dosDate)
	le.PutUint32(h[14:], rec.crc)
	le.PutUint32(h[18:], rec.sizePacked)
	le.PutUint32(h[22:], rec.sizeRaw)
	le.PutUint16(h[26:], uint16(len(rec.name)))
	le.PutUint16(h[28:], 0) // extra field length
	buf.Write(h[:])
	buf.WriteString(rec.name)
}

// writeCentralHeader emits the 46-byte central directory header plus the
// name, mirroring the local fields and adding the local header offset.
func writeCentralHeader(buf *bytes.Buffer, rec record) {
	var h [46]byte
	le := binary.LittleEndian
	le.PutUint32(h[0:], centralHeaderSig)
	le.PutUint16(h[4:], versionNeeded) // version made by
	le.PutUint16(h[6:], versionNeeded) // version needed to extract
	le.PutUint16(h[8:], 0)             // general purpose flags
	le.PutUint16(h[10:], rec.method)
	le.PutUint16(h[12:], dosTime)
	le.PutUint16(h[14:], dosDate)
	le.PutUint32(h[16:], rec.crc)
	le.PutUint32(h[20:], rec.sizePacked)
	le.PutUint32(h[24:], rec.sizeRaw)
	le.PutUint16(h[28:], uint16(len(rec.name)))
	le.PutUint16(h[30:], 0) // extra field length
	le.PutUint16(h[32:], 0) // comment length
	le.PutUint16(h[34:], 0) // disk number start
	le.PutUint16(h[36:], 0) // internal attributes
	le.PutUint32(h[38:], 0) // external attributes
	le.PutUint32(h[42:], rec.localOffset)
	buf.Write(h[:])
	buf.WriteString(rec.name)
}

// writeEndRecord emits the 22-byte end-of-central-directory record.
func writeEndRecord(buf *bytes.Buffer, count uint16, centralSize, centralOffset uint32) {
	var h [22]byte
	le := binary.LittleEndian
	le.PutUint32(h[0:], eocdSig)
	le.PutUint16(h[4:], 0) // this disk
	le.PutUint16(h[6:], 0) // disk with central directory
	le.PutUint16(h[8:], count)
	le.PutUint16(h[10:], count)
	le.PutUint32(h[12:], centralSize)
	le.PutUint32(h[16:], centralOffset)
	le.PutUint16(h[20:], 0) // comment length
	buf.Write(h[:])
}
