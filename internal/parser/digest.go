package parser

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes returns the lowercase hex SHA-256 of input.
func HashBytes(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// HashEntry chains a line to its file: sha256(line || fileSHA).
func HashEntry(line []byte, fileSHA string) string {
	h := sha256.New()
	h.Write(line)
	h.Write([]byte(fileSHA))
	return hex.EncodeToString(h.Sum(nil))
}
