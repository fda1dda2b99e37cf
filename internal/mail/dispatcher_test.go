package mail

import (
	"encoding/base64"
	"strings"
	"testing"
)

// プレーンテキストメッセージのヘッダと本文の構成を検証
func TestBuildPlainMessage(t *testing.T) {
	msg := string(buildPlainMessage(
		"tienda@auridal.example",
		[]string{"cliente@example.com", "pedidos@auridal.example"},
		"Credenciales de acceso",
		"Tu usuario es maria.garcia.0001",
	))

	wantContains := []string{
		"From: tienda@auridal.example\r\n",
		"To: cliente@example.com, pedidos@auridal.example\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
		"Tu usuario es maria.garcia.0001",
	}
	for _, want := range wantContains {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

// 非ASCIIの件名がRFC 2047でエンコードされることを検証
func TestBuildPlainMessage_EncodesSubject(t *testing.T) {
	msg := string(buildPlainMessage(
		"tienda@auridal.example",
		[]string{"cliente@example.com"},
		"Factura nº 42",
		"",
	))

	if strings.Contains(msg, "Subject: Factura nº 42\r\n") {
		t.Error("expected non-ASCII subject to be RFC 2047 encoded")
	}
	if !strings.Contains(msg, "Subject: =?utf-8?q?") {
		t.Errorf("expected Q-encoded subject header:\n%s", msg)
	}
}

// multipart/mixedメッセージの枠組みを検証
func TestBuildMultipartMessage_Framing(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake content for framing test")
	msg := string(buildMultipartMessage(
		"tienda@auridal.example",
		[]string{"cliente@example.com"},
		"Factura",
		"Adjuntamos su factura.",
		pdf,
		"factura_42.pdf",
	))

	wantContains := []string{
		"MIME-Version: 1.0\r\n",
		`Content-Type: multipart/mixed; boundary="` + multipartBoundary + `"`,
		"--" + multipartBoundary + "\r\n",
		"--" + multipartBoundary + "--\r\n",
		"Content-Type: application/pdf\r\n",
		"Content-Transfer-Encoding: base64\r\n",
		`Content-Disposition: attachment; filename="factura_42.pdf"`,
		"Adjuntamos su factura.",
	}
	for _, want := range wantContains {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

// 添付がbase64で復元可能なことを検証
func TestBuildMultipartMessage_AttachmentRoundTrip(t *testing.T) {
	pdf := make([]byte, 200)
	for i := range pdf {
		pdf[i] = byte(i % 251)
	}

	msg := string(buildMultipartMessage(
		"tienda@auridal.example",
		[]string{"cliente@example.com"},
		"Factura",
		"cuerpo",
		pdf,
		"factura.pdf",
	))

	// 添付パートのbase64本体を抽出する
	parts := strings.Split(msg, "--"+multipartBoundary)
	if len(parts) < 4 {
		t.Fatalf("expected at least 2 parts, got %d segments", len(parts))
	}
	attachmentPart := parts[2]
	idx := strings.Index(attachmentPart, "\r\n\r\n")
	if idx < 0 {
		t.Fatal("attachment part has no header/body separator")
	}
	encoded := strings.ReplaceAll(strings.TrimSpace(attachmentPart[idx+4:]), "\r\n", "")

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("failed to decode attachment: %v", err)
	}
	if len(decoded) != len(pdf) {
		t.Fatalf("decoded %d bytes, want %d", len(decoded), len(pdf))
	}
	for i := range pdf {
		if decoded[i] != pdf[i] {
			t.Fatalf("attachment corrupted at byte %d", i)
		}
	}
}

// base64本体が76桁で折り返されることを検証
func TestBuildMultipartMessage_LineWrap(t *testing.T) {
	pdf := make([]byte, 600)
	msg := string(buildMultipartMessage(
		"tienda@auridal.example",
		[]string{"cliente@example.com"},
		"Factura",
		"cuerpo",
		pdf,
		"factura.pdf",
	))

	for _, line := range strings.Split(msg, "\r\n") {
		if len(line) > 78 {
			t.Errorf("line exceeds 78 chars (%d): %q", len(line), line[:40])
		}
	}
}
