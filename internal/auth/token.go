// Package auth はクッキー3点組によるセッション検証を提供する。
//
// login_idは外部のログインフローが
// digest(encodeURIComponent(login_name) + "TO" + encodeURIComponent(login_email) + "INTO" + 正規ホスト)
// として発行したもので、ここでは同じ値を導出して照合する。
package auth

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Digest はセッショントークンの一方向ダイジェスト。
type Digest interface {
	Sum(payload string) string
}

// MD5Digest は外部ログインフローが使う従来方式のダイジェスト。
// 暗号学的な強度はなく、署名鍵を設定できる場合はKeyedDigestを使う。
type MD5Digest struct{}

// Sum はpayloadのmd5を16進小文字で返す。
func (MD5Digest) Sum(payload string) string {
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// KeyedDigest は鍵付きBLAKE2b-256によるダイジェスト。
type KeyedDigest struct {
	key []byte
}

// NewKeyedDigest はKeyedDigestを生成する。鍵は1〜64バイト。
func NewKeyedDigest(key []byte) (*KeyedDigest, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, errors.New("signing key must be between 1 and 64 bytes")
	}
	return &KeyedDigest{key: append([]byte(nil), key...)}, nil
}

// Sum はpayloadの鍵付きBLAKE2b-256を16進小文字で返す。
func (d *KeyedDigest) Sum(payload string) string {
	h, err := blake2b.New256(d.key)
	if err != nil {
		// 鍵長はNewKeyedDigestで検証済み
		panic(err)
	}
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// DeriveToken はクッキーの名前とメールアドレス、正規ホストからセッショントークンを導出する。
// 同じ入力に対して常に同じ値を返す。
func DeriveToken(d Digest, name, email, canonicalHost string) string {
	return d.Sum(EncodeURIComponent(name) + "TO" + EncodeURIComponent(email) + "INTO" + canonicalHost)
}

// EncodeURIComponent はJavaScriptのencodeURIComponentと同じ規則でエンコードする。
// 非予約文字 A-Z a-z 0-9 - _ . ! ~ * ' ( ) 以外をUTF-8の%XX（大文字）にする。
// url.QueryEscapeとは空白と!'()*の扱いが異なるため、外部ログインフローと一致させるにはこちらを使う。
func EncodeURIComponent(s string) string {
	const hexDigits = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
