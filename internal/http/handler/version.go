package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/obaldwin4/congenial-palm-tree/internal/domain"
)

const jsonContentType = "application/json; charset=utf-8"

// VersionHandler answers the orchestrator's health probe. The body is
// encoded once; requests only copy bytes, so the probe never waits on
// storage or other work.
type VersionHandler struct {
	versionBody []byte
	pingBody    []byte
}

func NewVersionHandler(info domain.VersionInfo) (*VersionHandler, error) {
	versionBody, err := json.Marshal(Response{Result: info})
	if err != nil {
		return nil, fmt.Errorf("encode version info: %w", err)
	}
	pingBody, err := json.Marshal(Response{Result: true})
	if err != nil {
		return nil, fmt.Errorf("encode ping: %w", err)
	}
	return &VersionHandler{versionBody: versionBody, pingBody: pingBody}, nil
}

func (h *VersionHandler) Version(c *gin.Context) {
	c.Data(http.StatusOK, jsonContentType, h.versionBody)
}

func (h *VersionHandler) Ping(c *gin.Context) {
	c.Data(http.StatusOK, jsonContentType, h.pingBody)
}
