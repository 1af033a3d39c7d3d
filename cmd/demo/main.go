package main

import (
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mrnkr/socketscope"
	"github.com/mrnkr/socketscope/pkg/boot"
	"github.com/mrnkr/socketscope/pkg/di"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	app := socketscope.New(socketscope.WithLogger(logger))

	// 생성자 등록
	must(app.Register("logger", di.AsValue(logger)))
	must(app.Register("hub", di.Must(di.AsFunction(NewRoomHub, di.AsSingleton()))))
	must(app.Register("presence", di.Must(di.AsFunction(NewPresence, di.AsScoped()))))

	chat, err := socketscope.MakeClassInvoker((*ChatHandler)(nil))
	must(err)

	// 연결 미들웨어
	app.Use(socketscope.AdaptToMiddleware(chat.MustMethod("Auth")))

	// 이벤트 등록
	app.WebSocket().On("chat.join", chat.MustMethod("Join"))
	app.WebSocket().On("chat.send", chat.MustMethod("Send"))
	app.WebSocket().On("chat.rooms", socketscope.MustInject(RoomsHandler))

	opts := boot.Options{
		Address:                ":8080",
		WebSocketPath:          "/ws",
		EnableGracefulShutdown: true,
		ShutdownTimeout:        10 * time.Second,
		Logger:                 logger,
	}

	orders, err := socketscope.MakeClassInvoker((*OrderConsumer)(nil))
	must(err)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		opts.Kafka = &boot.KafkaOptions{
			Brokers: strings.Split(brokers, ","),
			Read:    &boot.KafkaReadOptions{GroupID: "socketscope-demo"},
			Write:   &boot.KafkaWriteOptions{TopicPrefix: "demo."},
		}
		app.Kafka().Register("order.created", orders.MustMethod("OnCreated"))
	}

	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		opts.RabbitMQ = &boot.RabbitMqOptions{
			URL: url,
			Read: &boot.RabbitMqReadOptions{
				Exchange:    "demo.events",
				QueuePrefix: "socketscope-demo.",
				Prefetch:    16,
			},
			Write: &boot.RabbitMqWriteOptions{Exchange: "demo.events"},
		}
		app.RabbitMQ().Register("order.created", orders.MustMethod("OnCreated"))
	}

	printRegistrations(app.Container().Registrations())

	if err := app.Run(opts); err != nil {
		logger.Fatal("서버 실행 실패", zap.Error(err))
	}
}

func printRegistrations(regs []di.Registration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Name", "Kind", "Lifetime", "Type"})
	for _, reg := range regs {
		typeName := "-"
		if reg.Type != nil {
			typeName = reg.Type.String()
		}
		t.AppendRow(table.Row{reg.Name, reg.Kind, reg.Lifetime, typeName})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
