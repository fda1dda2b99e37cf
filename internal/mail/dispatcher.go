// Package mail はSMTP経由のメール送信を提供する。
//
// コーポレートのSMTPリレーに対するシンプルな送信のみを想定し、
// 再送やキューイングは行わない。送信失敗は呼び出し元で処理する。
package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

// Dispatcher はメール送信のインターフェース。
type Dispatcher interface {
	// Send はプレーンテキストメールを送信する。
	Send(ctx context.Context, to []string, subject, body string) error

	// SendWithAttachment はPDF添付付きメールを送信する。
	// multipart/mixed形式で本文と添付をエンコードする。
	SendWithAttachment(ctx context.Context, to []string, subject, body string, attachment []byte, filename string) error
}

// SMTPDispatcher はnet/smtpを使用したDispatcherの実装。
type SMTPDispatcher struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPDispatcher はSMTPDispatcherを生成する。
// usernameが空の場合は認証なしで送信する（社内リレー向け）。
func NewSMTPDispatcher(host, port, username, password, from string) *SMTPDispatcher {
	return &SMTPDispatcher{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send はプレーンテキストメールを送信する。
func (d *SMTPDispatcher) Send(ctx context.Context, to []string, subject, body string) error {
	msg := buildPlainMessage(d.from, to, subject, body)
	return d.sendMail(ctx, to, msg)
}

// SendWithAttachment はPDF添付付きメールを送信する。
func (d *SMTPDispatcher) SendWithAttachment(ctx context.Context, to []string, subject, body string, attachment []byte, filename string) error {
	msg := buildMultipartMessage(d.from, to, subject, body, attachment, filename)
	return d.sendMail(ctx, to, msg)
}

func (d *SMTPDispatcher) sendMail(ctx context.Context, to []string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := d.host + ":" + d.port
	var auth smtp.Auth
	if d.username != "" {
		auth = smtp.PlainAuth("", d.username, d.password, d.host)
	}

	if err := smtp.SendMail(addr, auth, d.from, to, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// buildPlainMessage はプレーンテキストのRFC 5322メッセージを構築する。
func buildPlainMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	writeCommonHeaders(&b, from, to, subject)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// multipartBoundary はmultipart/mixedメッセージの境界文字列。
// 本文・添付がbase64/プレーンテキストのみのため衝突の心配はない。
const multipartBoundary = "tienda-mail-boundary-7ad3c1"

// buildMultipartMessage はPDF添付付きのmultipart/mixedメッセージを構築する。
// 添付はbase64エンコードし、76桁で折り返す。
func buildMultipartMessage(from string, to []string, subject, body string, attachment []byte, filename string) []byte {
	var b strings.Builder
	writeCommonHeaders(&b, from, to, subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n", multipartBoundary))
	b.WriteString("\r\n")

	// 本文パート
	b.WriteString("--" + multipartBoundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")

	// 添付パート
	b.WriteString("--" + multipartBoundary + "\r\n")
	b.WriteString("Content-Type: application/pdf\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", filename))
	b.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString(attachment)
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")

	b.WriteString("--" + multipartBoundary + "--\r\n")
	return []byte(b.String())
}

// writeCommonHeaders はFrom/To/Subjectの共通ヘッダを書き込む。
// 件名はSpanish等の非ASCII文字を含むためRFC 2047エンコードする。
func writeCommonHeaders(b *strings.Builder, from string, to []string, subject string) {
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
}

// compile-time interface check
var _ Dispatcher = (*SMTPDispatcher)(nil)
