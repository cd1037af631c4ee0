package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// ErrInvalidHash signals a malformed Argon2id hash string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

const hashPrefix = "$argon2id$"

var b64 = base64.RawStdEncoding

// ArgonParams are the cost settings written into every stored hash.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

func (p ArgonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}

// encode renders the PHC string: $argon2id$v=19$m=..,t=..,p=..$salt$key.
func (p ArgonParams) encode(salt, key []byte) string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		hashPrefix, argon2.Version, p.Memory, p.Time, p.Parallelism, b64.EncodeToString(salt), b64.EncodeToString(key))
}

type decodedHash struct {
	params ArgonParams
	salt   []byte
	key    []byte
}

func parseHash(encoded string) (decodedHash, error) {
	rest, ok := strings.CutPrefix(encoded, hashPrefix)
	if !ok {
		return decodedHash{}, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 || fields[0] != fmt.Sprintf("v=%d", argon2.Version) {
		return decodedHash{}, ErrInvalidHash
	}

	var (
		out     decodedHash
		memory  uint32
		passes  uint32
		threads uint8
	)
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &memory, &passes, &threads); err != nil {
		return decodedHash{}, ErrInvalidHash
	}
	if memory == 0 || passes == 0 || threads == 0 {
		return decodedHash{}, ErrInvalidHash
	}

	var err error
	if out.salt, err = b64.DecodeString(fields[2]); err != nil {
		return decodedHash{}, ErrInvalidHash
	}
	if out.key, err = b64.DecodeString(fields[3]); err != nil || len(out.key) == 0 {
		return decodedHash{}, ErrInvalidHash
	}
	out.params = ArgonParams{
		Memory:      memory,
		Time:        passes,
		Parallelism: threads,
		SaltLen:     uint32(len(out.salt)),
		KeyLen:      uint32(len(out.key)),
	}
	return out, nil
}

// Hasher hashes customer and admin passwords with Argon2id.
type Hasher struct {
	params ArgonParams
}

// NewHasher builds a hasher from config, holding each cost inside a range the API servers can afford.
func NewHasher(cfg config.PasswordConfig) *Hasher {
	return &Hasher{params: ArgonParams{
		Memory:      bounded(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        bounded(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     bounded(cfg.ArgonSaltLen, 8, 64),
		KeyLen:      bounded(cfg.ArgonKeyLen, 16, 64),
	}}
}

func bounded(v, lo, hi int) uint32 {
	return uint32(min(max(v, lo), hi))
}

func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return h.params.encode(salt, h.params.derive(password, salt)), nil
}

// Verify checks password against encoded using the costs recorded in encoded, not the hasher's own.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	stored, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	computed := stored.params.derive(password, stored.salt)
	return subtle.ConstantTimeCompare(stored.key, computed) == 1, nil
}

// NeedsRehash reports whether encoded was produced with costs other than the current ones.
// Unparseable hashes always need one.
func (h *Hasher) NeedsRehash(encoded string) bool {
	stored, err := parseHash(encoded)
	if err != nil {
		return true
	}
	return stored.params != h.params
}
