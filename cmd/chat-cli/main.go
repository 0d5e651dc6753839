// chat-cli is a terminal client for the discovery assistant. It streams the
// assistant's answer as it arrives and renders the product cards extracted
// from the finished message.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"localagent.ro/sme-agent/internal/core"
	"localagent.ro/sme-agent/internal/stream"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Base URL of the sme-agent server")
	token := flag.String("token", "", "Optional bearer token")
	flag.Parse()

	fmt.Println("LocalAgent — scrie un mesaj (Ctrl+D pentru ieșire)")

	var history []core.ChatMessage
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		history = append(history, core.ChatMessage{Role: core.RoleUser, Content: input})
		content, err := sendMessage(*serverURL, *token, history)
		if err != nil {
			log.Printf("Eroare: %v", err)
			history = history[:len(history)-1]
			continue
		}
		history = append(history, core.ChatMessage{Role: core.RoleAssistant, Content: content})

		// Image-marker lines are stripped from the display text and shown as
		// part of the product cards instead.
		clean, products := stream.ExtractProducts(content)
		fmt.Println(clean)
		if len(products) > 0 {
			fmt.Println("\n--- Produse găsite ---")
			for _, p := range products {
				title := p.Title
				if title == "" {
					title = "Produs"
				}
				fmt.Printf("• %s\n  %s\n", title, p.URL)
				if p.Price != "" {
					fmt.Printf("  Preț: %s\n", p.Price)
				}
				if p.Image != "" {
					fmt.Printf("  Imagine: %s\n", p.Image)
				}
			}
		}
		fmt.Println()
	}
}

// sendMessage posts the turn history and consumes the event stream, printing a
// progress mark per delta. Returns the full assistant message; rendering of
// the finished text happens in the caller, after marker extraction.
func sendMessage(serverURL, token string, history []core.ChatMessage) (string, error) {
	body, err := json.Marshal(map[string]any{"messages": history})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Error != "" {
			return "", fmt.Errorf("%s", errBody.Error)
		}
		return "", fmt.Errorf("server returned %d", resp.StatusCode)
	}

	reassembler := stream.NewReassembler()
	buf := make([]byte, 4096)
	for !reassembler.Done() {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			for range reassembler.Feed(buf[:n]) {
				fmt.Print(".")
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return reassembler.Content(), err
		}
	}
	fmt.Println()
	return reassembler.Content(), nil
}
