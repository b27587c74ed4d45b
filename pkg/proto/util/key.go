package util

import (
	"io"

	"go.minekube.com/common/minecraft/key"
)

// ReadKey reads a namespaced identifier like "minecraft:brand".
func ReadKey(rd io.Reader) (key.Key, error) {
	s, err := ReadString(rd)
	if err != nil {
		return nil, err
	}
	return key.Parse(s)
}

// WriteKey writes a namespaced identifier.
func WriteKey(wr io.Writer, k key.Key) error {
	return WriteString(wr, k.String())
}
