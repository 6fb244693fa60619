package world

const (
	codeChars    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLen      = 6
	maxCodeLen   = 10
	codeAttempts = 64
)

// newCodeLocked 生成未被占用的房间码；同一长度连续冲突时加长一位重试
func (s *Store) newCodeLocked() (string, error) {
	for n := codeLen; n <= maxCodeLen; n++ {
		for i := 0; i < codeAttempts; i++ {
			code := s.randomCodeLocked(n)
			if _, taken := s.rooms[code]; !taken {
				return code, nil
			}
		}
	}
	return "", ErrCodeSpaceExhausted
}

func (s *Store) randomCodeLocked(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeChars[s.rng.Intn(len(codeChars))]
	}
	return string(b)
}
