// Command tester runs a manual smoke pass against a live chat server:
// two throwaway users exercise the public, private, group and search
// paths and every line the server sends back is printed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
)

type probe struct {
	name    string
	conn    net.Conn
	scanner *bufio.Scanner
}

func dialProbe(addr, name string) *probe {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("Could not connect to %s: %v", addr, err)
	}
	p := &probe{name: name, conn: conn, scanner: bufio.NewScanner(conn)}

	// Handshake: prompt, name, then the welcome block
	p.await("Enter your username:")
	p.send(name)
	p.await("- /quit - Leave chat")
	fmt.Printf("🤝 %s joined\n", name)
	return p
}

func (p *probe) send(line string) {
	if _, err := fmt.Fprintf(p.conn, "%s\n", line); err != nil {
		log.Fatalf("Send failed for %s: %v", p.name, err)
	}
}

func (p *probe) read() string {
	if err := p.conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		log.Fatalf("Deadline failed for %s: %v", p.name, err)
	}
	if !p.scanner.Scan() {
		log.Fatalf("No reply for %s: %v", p.name, p.scanner.Err())
	}
	line := p.scanner.Text()
	fmt.Printf("   [%s] %s\n", p.name, line)
	return line
}

// await reads until a line contains the fragment, tolerating join
// notices and other traffic from a shared server
func (p *probe) await(fragment string) string {
	for i := 0; i < 100; i++ {
		if line := p.read(); strings.Contains(line, fragment) {
			return line
		}
	}
	log.Fatalf("%s never received %q", p.name, fragment)
	return ""
}

func main() {
	addr := flag.String("addr", "localhost:12345", "chat server address")
	flag.Parse()

	run := uuid.New().String()[:8]
	group := "smoke_" + run

	// 1. Connect two throwaway users
	alice := dialProbe(*addr, "smoke_a_"+run)
	bob := dialProbe(*addr, "smoke_b_"+run)
	alice.await(bob.name + " has joined the chat")

	// 2. Public broadcast
	fmt.Println("\n📢 Public broadcast...")
	alice.send("hello from the smoke test")
	bob.await(alice.name + ": hello from the smoke test")

	// 3. Private message and sender echo
	fmt.Println("\n🔒 Private message...")
	alice.send("@" + bob.name + " ping")
	bob.await("[Private] " + alice.name + ": ping")
	alice.await("[Private to " + bob.name + "]: ping")

	// 4. Group ceremony and routing
	fmt.Println("\n👥 Group ceremony...")
	alice.send("/creategroup " + group)
	alice.await("created successfully")
	alice.send("/addtogroup " + group + " " + bob.name)
	bob.await("You have been added to group")
	alice.await("added to group")
	bob.send("#" + group + " group line check")
	alice.await("[" + group + "] " + bob.name + ": group line check")

	// 5. Search: the archive indexes behind the fan-out, so poll
	fmt.Println("\n🔍 Search...")
	hit := alice.name + " -> " + bob.name + ": ping"
	found := false
	for attempt := 0; attempt < 20 && !found; attempt++ {
		alice.send("/search ping")
		found = strings.Contains(alice.read(), hit)
		if !found {
			time.Sleep(500 * time.Millisecond)
		}
	}
	if !found {
		log.Fatalf("Search never returned the private message")
	}

	// 6. Clean exit
	bob.send("/quit")
	alice.await(bob.name + " has left the chat")
	alice.send("/quit")

	fmt.Printf("\n--- [Smoke Test Result] ---\n")
	fmt.Printf("Server : %s\n", *addr)
	fmt.Printf("Checks : broadcast, private, group, search, quit\n")
	fmt.Printf("Status : OK\n")
}
