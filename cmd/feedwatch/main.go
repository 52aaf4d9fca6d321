package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"UD_contest_bot/internal/api"
	"UD_contest_bot/internal/model"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	url := flag.String("url", "ws://localhost:8080/api/v1/feed/registrations", "registration feed url")
	initData := flag.String("init-data", os.Getenv("FEED_INIT_DATA"), "admin mini app init data")
	flag.Parse()

	header := http.Header{}
	if *initData != "" {
		header.Add("Authorization", "Telegram "+*initData)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	messageQueue := make(chan []byte)

	go func() {
		defer close(messageQueue)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				log.Println("read error:", err)
				return
			}

			messageQueue <- p
		}
	}()

	for {
		select {
		case p, ok := <-messageQueue:
			if !ok {
				return
			}
			printMessage(p)
		case <-interrupt:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}

func printMessage(p []byte) {
	var msg message
	if err := json.Unmarshal(p, &msg); err != nil {
		log.Printf("Received:\n%s\n", p)
		return
	}

	if msg.Type != api.MessageRegistrationCompleted {
		log.Printf("Received %s:\n%s\n", msg.Type, msg.Payload)
		return
	}

	var event model.RegistrationEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		log.Println("json unmarshal error:", err)
		return
	}

	referrer := "-"
	if event.ReferrerID != nil {
		referrer = strconv.FormatInt(*event.ReferrerID, 10)
	}
	log.Printf("%s  %d  %q  %s  referrer=%s\n",
		event.CompletedAt.Format(time.DateTime), event.TelegramID, event.FullName, event.Region, referrer)
}
