// Package favorites keeps a visitor's favorited events in an encrypted URL token,
// so no server-side state is needed to share or restore a list.
package favorites

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"

	"github.com/kat-co/vala"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	idSize    = 8
	nonceSize = 24
	KeySize   = 32
)

var (
	// errors
	ErrTooLong      = errors.New("too many favorites")
	ErrInvalidToken = errors.New("invalid favorites token")

	encoding = base64.RawURLEncoding
	randRead = rand.Reader // mockable
)

// ToggleResult tells what Toggle did with the id.
type ToggleResult int

const (
	Removed ToggleResult = iota
	Added
	Full
)

func (r ToggleResult) String() string {
	switch r {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "error"
	}
}

func (r ToggleResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Toggle removes `id` from `list` when present, appends it otherwise.
// A list already holding `max` ids is left as is and Full is returned.
func Toggle(list []int, id, max int) ([]int, ToggleResult) {
	for i, fav := range list {
		if fav == id {
			out := make([]int, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), Removed
		}
	}
	if len(list) >= max {
		return list, Full
	}
	out := make([]int, 0, len(list)+1)
	out = append(out, list...)
	return append(out, id), Added
}

// Codec seals lists of ids with secretbox.
type Codec struct {
	key    [KeySize]byte
	max    int
	maxLen int // longest acceptable token
}

func NewCodec(key []byte, max int) (*Codec, error) {
	if err := vala.BeginValidation().Validate(
		vala.HasLen(key, KeySize, "key"),
		vala.GreaterThan(max, 0, "max"),
	).Check(); err != nil {
		return nil, err
	}

	c := &Codec{
		max:    max,
		maxLen: encoding.EncodedLen(nonceSize + secretbox.Overhead + max*idSize),
	}
	copy(c.key[:], key)
	return c, nil
}

func (c *Codec) Max() int { return c.max }

// Encode serializes `ids` as 8-byte big-endian integers and seals them under a random nonce.
func (c *Codec) Encode(ids []int) (string, error) {
	if len(ids) > c.max {
		return "", ErrTooLong
	}

	plain := make([]byte, len(ids)*idSize)
	for i, id := range ids {
		binary.BigEndian.PutUint64(plain[i*idSize:], uint64(id))
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(randRead, nonce[:]); err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &c.key)
	return encoding.EncodeToString(sealed), nil
}

// Decode opens a token produced by Encode. An empty token is an empty list.
func (c *Codec) Decode(token string) ([]int, error) {
	if token == "" {
		return []int{}, nil
	}
	if len(token) > c.maxLen {
		return nil, ErrTooLong
	}

	raw, err := encoding.DecodeString(token)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return nil, ErrInvalidToken
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return nil, ErrInvalidToken
	}
	if len(plain) > c.max*idSize {
		return nil, ErrTooLong
	}
	if len(plain)%idSize != 0 {
		return nil, ErrInvalidToken
	}

	ids := make([]int, 0, len(plain)/idSize)
	for i := 0; i < len(plain); i += idSize {
		ids = append(ids, int(binary.BigEndian.Uint64(plain[i:])))
	}
	return ids, nil
}

// Contains reports whether `id` is in `list`.
func Contains(list []int, id int) bool {
	for _, fav := range list {
		if fav == id {
			return true
		}
	}
	return false
}
