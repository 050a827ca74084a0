package internal

// Bitcoin alphabet: no 0, O, I or l.
const (
	alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	base     = uint64(len(alphabet))
)

// EncodeID renders id in base58. Used for generated referral slugs.
func EncodeID(id uint64) string {
	if id == 0 {
		return string(alphabet[0])
	}

	// 11 digits cover the full uint64 range.
	var buf [11]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = alphabet[id%base]
		id /= base
	}

	return string(buf[i:])
}
