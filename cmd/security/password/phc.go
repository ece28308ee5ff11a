package password

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

var b64 = base64.RawStdEncoding

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	memoryKiB   uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memoryKiB, p.iterations, p.parallelism,
		b64.EncodeToString(p.salt), b64.EncodeToString(p.key))
}

func parsePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return phc{}, ErrInvalidHash
	}
	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return phc{}, ErrInvalidHash
	}

	var p phc
	for _, kv := range strings.Split(fields[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return phc{}, ErrInvalidHash
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return phc{}, ErrInvalidHash
		}
		switch k {
		case "m":
			p.memoryKiB = uint32(n)
		case "t":
			p.iterations = uint32(n)
		case "p":
			if n > 255 {
				return phc{}, ErrInvalidHash
			}
			p.parallelism = uint8(n)
		default:
			return phc{}, ErrInvalidHash
		}
	}
	if p.memoryKiB == 0 || p.iterations == 0 || p.parallelism == 0 {
		return phc{}, ErrInvalidHash
	}

	var err error
	if p.salt, err = b64.DecodeString(fields[4]); err != nil {
		return phc{}, ErrInvalidHash
	}
	if p.key, err = b64.DecodeString(fields[5]); err != nil {
		return phc{}, ErrInvalidHash
	}
	return p, nil
}

// affordable rejects stored parameters far above what this service hashes
// with, so a planted hash cannot pin the CPU or memory of a login.
func (p phc) affordable(limits Params) bool {
	switch {
	case p.memoryKiB > limits.MemoryKiB*2,
		p.iterations > limits.Iterations*2,
		p.parallelism > limits.Parallelism*2:
		return false
	case len(p.salt) < 8 || len(p.salt) > 64,
		len(p.key) < 16 || len(p.key) > 128:
		return false
	}
	return true
}
