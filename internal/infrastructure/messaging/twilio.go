package messaging

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// TwilioClient 发 WhatsApp 消息 + 校验回调签名
// 没有引 Twilio 官方 SDK，REST API 本身就是一个表单 POST
type TwilioClient struct {
	accountSID  string
	authToken   string
	phoneNumber string
	httpClient  *http.Client
}

func NewTwilioClient(accountSID, authToken, phoneNumber string) *TwilioClient {
	return &TwilioClient{
		accountSID:  accountSID,
		authToken:   authToken,
		phoneNumber: phoneNumber,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SendWhatsApp 发送一条 WhatsApp 消息
// to 格式: "whatsapp:+911234567890"
func (t *TwilioClient) SendWhatsApp(ctx context.Context, to, body string) error {
	if t.accountSID == "" || t.authToken == "" {
		// 未配置就静默跳过，本地开发不用填 Twilio 凭证
		slog.Warn("Twilio 未配置，跳过发送", "to", to)
		return nil
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", t.accountSID)
	form := url.Values{}
	form.Set("From", "whatsapp:"+t.phoneNumber)
	form.Set("To", to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("twilio send: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// VerifySignature 校验 X-Twilio-Signature
// 算法：url + 按 key 排序拼接的表单参数，HMAC-SHA1 后 base64
func (t *TwilioClient) VerifySignature(fullURL string, params map[string]string, signature string) bool {
	if t.authToken == "" {
		return false
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(fullURL)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params[k])
	}

	mac := hmac.New(sha1.New, []byte(t.authToken))
	mac.Write([]byte(sb.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// FormatWhatsAppNumber 把裸号码规整成 Twilio 要的格式
func FormatWhatsAppNumber(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}
	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}
	return "whatsapp:" + number
}
