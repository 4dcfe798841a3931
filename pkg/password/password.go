package password

import "golang.org/x/crypto/bcrypt"

// Hasher bcrypt 密码摘要
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher 创建哈希器，cost 超出范围时使用 bcrypt.DefaultCost
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &Hasher{cost: cost}
	// 用于用户不存在时的等价比较
	h.dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), cost)
	return h
}

// Hash 生成密码摘要
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Compare 校验明文与摘要是否匹配
func (h *Hasher) Compare(plaintext, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	return err == nil
}

// CompareDummy 对固定摘要执行一次比较并丢弃结果，让未知账户的登录耗时与密码错误一致
func (h *Hasher) CompareDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}
