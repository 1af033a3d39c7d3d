package main

import (
	"time"

	"github.com/mrnkr/socketscope/core"
	"go.uber.org/zap"
)

type OrderConsumer struct {
	Logger *zap.Logger `inject:"logger"`
	Hub    *RoomHub    `inject:""`
}

func (c *OrderConsumer) OnCreated(conn core.ConnectionContext, eventName string, event OrderCreated) error {
	c.Logger.Info("이벤트 수신",
		zap.String("transport", conn.Transport()),
		zap.String("event", eventName),
		zap.Int64("orderId", event.OrderID),
	)

	c.Hub.Broadcast("orders", "order.created", event)

	return conn.Emit("order.accepted", OrderAccepted{
		OrderID: event.OrderID,
		By:      conn.ConnID(),
		At:      time.Now(),
	})
}
