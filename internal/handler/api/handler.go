package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
	"github.com/zhouzirui/mindpeers/client/internal/model/trend"
	"github.com/zhouzirui/mindpeers/client/internal/service/replay"
	"github.com/zhouzirui/mindpeers/client/pkg/utils"
)

// Handler 替身分析服务的HTTP处理器
type Handler struct {
	svc *replay.Service
	log *zap.Logger
}

// New 创建处理器
func New(svc *replay.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, log: logger.Named("handler")}
}

// RegisterRoutes 注册 /api 下的全部路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ping", h.handlePing)
	r.Post("/login", h.handleLogin)
	r.Post("/consent", h.handleConsent)
	r.Post("/message", h.handleMessage)
	r.Get("/trend/{userID}", h.handleTrend)
}

// userID 兼容数字与字符串两种写法。
type userID int64

func (id *userID) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if raw == "" || raw == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*id = userID(n)
	return nil
}

type loginResponse struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type messageResponse struct {
	BotReply string            `json:"bot_reply"`
	Analysis analysis.Analysis `json:"analysis"`
}

type trendResponse struct {
	Trend   []trend.Point  `json:"trend"`
	Summary *trend.Summary `json:"summary"`
}

// handlePing 健康检查
func (h *Handler) handlePing(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Backend is running!"})
}

// handleLogin 登录，不存在的邮箱自动注册
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &payload) {
		return
	}

	user, err := h.svc.Login(r.Context(), payload.Email)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, loginResponse{
		UserID:  user.ID,
		Email:   user.Email,
		Message: "Login successful",
	})
}

// handleConsent 记录用户同意条款
func (h *Handler) handleConsent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID         userID `json:"user_id"`
		EmergencyPhone string `json:"emergency_phone"`
	}
	if !h.decode(w, r, &payload) {
		return
	}

	if err := h.svc.Consent(r.Context(), int64(payload.UserID), payload.EmergencyPhone); err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Consent recorded successfully",
		"user_id": int64(payload.UserID),
	})
}

// handleMessage 按回放脚本应答一条消息
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID      userID `json:"user_id"`
		MessageText string `json:"message_text"`
	}
	if !h.decode(w, r, &payload) {
		return
	}

	resp, err := h.svc.Message(r.Context(), int64(payload.UserID), payload.MessageText)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, messageResponse{BotReply: resp.Reply, Analysis: resp.Analysis})
}

// handleTrend 返回用户情绪走势
func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "userID")), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	points, summary, err := h.svc.Trend(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, trendResponse{Trend: points, Summary: summary})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := utils.DecodeJSON(r, dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, utils.ErrEmptyBody):
		utils.RespondError(w, http.StatusBadRequest, "No JSON data received")
	default:
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
	}
	return false
}

// respondServiceError 将 replay 的哨兵错误映射为状态码与文案。
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, replay.ErrEmailRequired):
		utils.RespondError(w, http.StatusBadRequest, "Email is required")
	case errors.Is(err, replay.ErrUserIDRequired):
		utils.RespondError(w, http.StatusBadRequest, "User ID is required")
	case errors.Is(err, replay.ErrMessageRequired):
		utils.RespondError(w, http.StatusBadRequest, "User ID and message text are required")
	case errors.Is(err, replay.ErrUserNotFound):
		utils.RespondError(w, http.StatusNotFound, "User not found")
	default:
		h.log.Error("unexpected service error", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
