package e2e

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseTCPSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseTCPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("CHAT_SERVER_ADDR is not set, skipping end-to-end suite")
	}
}

// LineSession is one live chat connection with line-level logging
type LineSession struct {
	suite   *BaseTCPSuite
	t       *testing.T
	User    string
	conn    net.Conn
	scanner *bufio.Scanner
}

// Session initializes a TCP connection with logging and colors
func (s *BaseTCPSuite) Session(t *testing.T, name string) *LineSession {
	// 1. Print a colorized header for the connection step in logs
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	// 2. Dial the chat server
	conn, err := net.Dial("tcp", s.Config.ServerAddr)
	s.Require().NoError(err, "Failed to connect to chat server at "+s.Config.ServerAddr)
	t.Cleanup(func() { _ = conn.Close() })

	return &LineSession{suite: s, t: t, conn: conn, scanner: bufio.NewScanner(conn)}
}

// WithUser dials, authenticates a username and drains the welcome block
func (s *BaseTCPSuite) WithUser(t *testing.T, username string) *LineSession {
	sess := s.Session(t, "Connecting "+username)
	sess.User = username
	sess.AwaitContains("Enter your username:")
	sess.Send(username)
	sess.AwaitContains("Welcome to the chat, " + username + "!")
	sess.AwaitContains("- /quit - Leave chat")
	return sess
}

// Send writes one protocol line
func (l *LineSession) Send(line string) {
	if l.suite.Config.DebugWire {
		l.t.Logf("SEND %s: %q", l.User, line)
	}
	_, err := fmt.Fprintf(l.conn, "%s\n", line)
	l.suite.Require().NoError(err, "Failed to send as "+l.User)
}

// Recv reads one protocol line within the configured timeout
func (l *LineSession) Recv() string {
	start := time.Now()
	l.suite.Require().NoError(l.conn.SetReadDeadline(time.Now().Add(l.suite.Config.ReadTimeout)))
	l.suite.Require().True(l.scanner.Scan(), "No line from server for %s: %v", l.User, l.scanner.Err())
	line := l.scanner.Text()
	if l.suite.Config.DebugWire {
		l.t.Logf("RECV %s: %q in %v", l.User, line, time.Since(start))
	}
	return line
}

// Expect asserts the exact next line
func (l *LineSession) Expect(want string) {
	l.suite.Require().Equal(want, l.Recv(), "Next line for %s", l.User)
}

// AwaitContains reads until a line contains the fragment, skipping
// unrelated chatter such as join and leave notices
func (l *LineSession) AwaitContains(fragment string) string {
	for i := 0; i < 100; i++ {
		line := l.Recv()
		if strings.Contains(line, fragment) {
			return line
		}
	}
	l.suite.Require().FailNowf("Missing line", "%s never received a line containing %q", l.User, fragment)
	return ""
}
