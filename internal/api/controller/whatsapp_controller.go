package controller

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/leon37/finsight/internal/infrastructure/messaging"
	"github.com/leon37/finsight/internal/service"
)

// WhatsAppController Twilio 回调入口
// 注意这个 webhook 是公开路由，不走 JWT，身份靠 Twilio 签名 + 号码绑定
type WhatsAppController struct {
	service *service.WhatsAppService
	twilio  *messaging.TwilioClient
}

func NewWhatsAppController(s *service.WhatsAppService, twilio *messaging.TwilioClient) *WhatsAppController {
	return &WhatsAppController{service: s, twilio: twilio}
}

// Webhook 入站消息回调
// @Summary WhatsApp 入站消息
// @Description Twilio 的消息回调。无论处理结果如何都返回 200，否则 Twilio 会不停重投
// @Tags WhatsApp
// @Accept x-www-form-urlencoded
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /whatsapp/webhook [post]
func (ctrl *WhatsAppController) Webhook(c *gin.Context) {
	from := c.PostForm("From")       // "whatsapp:+911234567890"
	body := c.PostForm("Body")
	messageSid := c.PostForm("MessageSid")

	// 签名校验。sandbox 环境经常因为代理改写 URL 而校验不过，
	// 所以这里只记日志不拒绝，靠号码绑定兜底
	signature := c.GetHeader("X-Twilio-Signature")
	if signature != "" {
		params := map[string]string{}
		if err := c.Request.ParseForm(); err == nil {
			for k, v := range c.Request.PostForm {
				if len(v) > 0 {
					params[k] = v[0]
				}
			}
		}
		fullURL := "https://" + c.Request.Host + c.Request.URL.RequestURI()
		if !ctrl.twilio.VerifySignature(fullURL, params, signature) {
			slog.Warn("Twilio 签名校验未通过", "from", from, "message_sid", messageSid)
		}
	}

	if from == "" || body == "" {
		c.String(http.StatusOK, "OK")
		return
	}

	// 去掉 "whatsapp:" 前缀，服务层只认裸号码
	number := strings.TrimPrefix(from, "whatsapp:")

	reply := ctrl.service.HandleMessage(c.Request.Context(), number, body, messageSid)
	if reply != "" {
		if err := ctrl.twilio.SendWhatsApp(c.Request.Context(), from, reply); err != nil {
			slog.Error("WhatsApp 回复发送失败", "to", from, "err", err)
		}
	}

	// Twilio 只要 200，内容不重要
	c.String(http.StatusOK, "OK")
}

// StatusCallback 消息投递状态回调
// @Summary WhatsApp 投递状态
// @Description 只记日志，不做业务处理
// @Tags WhatsApp
// @Accept x-www-form-urlencoded
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /whatsapp/status [post]
func (ctrl *WhatsAppController) StatusCallback(c *gin.Context) {
	slog.Info("WhatsApp 投递状态",
		"message_sid", c.PostForm("MessageSid"),
		"status", c.PostForm("MessageStatus"),
		"to", c.PostForm("To"),
	)
	c.String(http.StatusOK, "OK")
}
