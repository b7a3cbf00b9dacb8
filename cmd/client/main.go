package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/gochat/internal/client"
	"github.com/Tyrowin/gochat/internal/logger"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "chat server address")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	in := bufio.NewReader(os.Stdin)
	fmt.Print("Enter your name: ")
	name, _ := in.ReadString('\n')
	name = strings.TrimRight(name, "\r\n")

	conn, err := net.DialTimeout("tcp", *addr, 10*time.Second)
	if err != nil {
		log.Fatal("cannot connect", zap.String("addr", *addr), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Run(ctx, conn, name, in, os.Stdout); err != nil {
		log.Error("chat session ended", zap.Error(err))
	}
}
