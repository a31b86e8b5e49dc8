package notify

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// smtpServer accepts one message per connection and does not offer AUTH.
type smtpServer struct {
	listener net.Listener
	received chan string
}

func startSmtpServer(t *testing.T) *smtpServer {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &smtpServer{listener: listener, received: make(chan string, 4)}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *smtpServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *smtpServer) serve(conn net.Conn) {
	defer conn.Close()
	text := textproto.NewConn(conn)
	reply := func(line string) { _ = text.PrintfLine("%s", line) }

	reply("220 localhost ESMTP")
	for {
		line, err := text.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			reply("250-localhost")
			reply("250 8BITMIME")
		case "MAIL", "RCPT", "RSET", "NOOP":
			reply("250 OK")
		case "DATA":
			reply("354 go ahead")
			data, err := text.ReadDotBytes()
			if err != nil {
				return
			}
			s.received <- string(data)
			reply("250 OK")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func TestEmailSinkFallsBackWithoutAuth(t *testing.T) {
	server := startSmtpServer(t)
	sink := NewEmailSink(SmtpConfig{
		Server:       "localhost",
		Port:         server.port(),
		EmailAddress: "attendance@example.com",
		Password:     "password",
	})

	err := sink.Send(context.Background(), Message{
		To:      "dm0359@srmist.edu.in",
		Subject: Subject,
		Body:    "Attendance Update:\n\nSubject: DAA\n",
	})
	require.NoError(t, err)

	data := <-server.received
	reader := textproto.NewReader(bufio.NewReader(strings.NewReader(data)))
	header, err := reader.ReadMIMEHeader()
	require.NoError(t, err)
	require.Equal(t, Subject, header.Get("Subject"))
	require.Contains(t, header.Get("To"), "dm0359@srmist.edu.in")
	require.Contains(t, data, "Subject: DAA")
}

func TestEmailSinkNeedsRecipient(t *testing.T) {
	sink := NewEmailSink(SmtpConfig{Server: "localhost", Port: 1})
	require.Error(t, sink.Send(context.Background(), Message{Subject: Subject, Body: "x"}))
}

func TestEmailSinkServerDown(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	sink := NewEmailSink(SmtpConfig{Server: "127.0.0.1", Port: port, EmailAddress: "a@example.com"})
	err = sink.Send(context.Background(), Message{To: "b@example.com", Body: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), strconv.Itoa(port))
}
