package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// WebSocketRuntime은 Echo에 올릴 WebSocket 런타임의 계약입니다.
type WebSocketRuntime interface {
	http.Handler
	Connections() int
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// Adapter는 WebSocket 런타임을 Echo 라우터에 연결합니다.
type Adapter struct {
	ws   WebSocketRuntime
	path string
}

func NewAdapter(ws WebSocketRuntime, path string) *Adapter {
	if ws == nil {
		panic("echo: websocket 런타임은 nil일 수 없습니다")
	}
	if path == "" {
		panic("echo: websocket 경로는 빈 값일 수 없습니다")
	}
	return &Adapter{
		ws:   ws,
		path: path,
	}
}

// Mount는 Echo 인스턴스에 WebSocket 엔드포인트와 /healthz를 연결합니다.
func (a *Adapter) Mount(e *echo.Echo) {
	e.GET(a.path, echo.WrapHandler(a.ws))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{
			Status:      "ok",
			Connections: a.ws.Connections(),
		})
	})
}
