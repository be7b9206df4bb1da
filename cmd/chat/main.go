package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "SKAI server URL")
	sessionID := flag.String("session", "", "Session ID to resume (empty starts a new one)")
	flag.Parse()

	fmt.Println("SKAI CLI Chat")
	fmt.Printf("Server: %s\n", *server)
	fmt.Println("Type 'exit' or 'quit' to leave. Use @agent_name <text> to route directly.")
	fmt.Println("Commands: /agents, /history")
	fmt.Println("---")

	fetchAgents(*server)

	session := *sessionID
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return
		}
		if input == "/agents" {
			fetchAgents(*server)
			continue
		}
		if input == "/history" {
			fetchHistory(*server, session)
			continue
		}
		if strings.HasPrefix(input, "@") {
			session = routeMessage(*server, session, input)
			continue
		}

		session = sendMessage(*server, session, input)
	}
}

func fetchAgents(server string) {
	resp, err := http.Get(server + "/api/agents")
	if err != nil {
		printError("Failed to fetch agents: %v", err)
		return
	}
	defer resp.Body.Close()

	var out struct {
		Agents []string `json:"agents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		printError("Failed to parse agents: %v", err)
		return
	}
	if len(out.Agents) == 0 {
		fmt.Println("No agents registered yet.")
		return
	}
	fmt.Println("Available agents:")
	for _, name := range out.Agents {
		fmt.Printf("  @%s\n", name)
	}
}

func fetchHistory(server, session string) {
	if session == "" {
		fmt.Println("No session yet. Say something first.")
		return
	}
	resp, err := http.Get(server + "/api/sessions/" + session + "/messages")
	if err != nil {
		printError("Failed to fetch history: %v", err)
		return
	}
	defer resp.Body.Close()

	var out struct {
		SessionID string `json:"session_id"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		printError("Failed to parse history: %v", err)
		return
	}
	fmt.Printf("Session %s:\n", out.SessionID)
	for _, m := range out.Messages {
		fmt.Printf("  [%s] %s\n", m.Role, m.Content)
	}
}

func sendMessage(server, session, content string) string {
	body, _ := json.Marshal(map[string]string{
		"message":    content,
		"session_id": session,
	})

	client := &http.Client{Timeout: 65 * time.Second}
	resp, err := client.Post(server+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		printError("Request failed: %v", err)
		return session
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return session
	}

	var env struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
		Intent    string `json:"intent"`
		AgentUsed string `json:"agent_used"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		printError("Failed to parse response: %v", err)
		return session
	}

	if env.Status == "error" {
		fmt.Printf("\033[31m[%s]\033[0m %s\n", env.AgentUsed, env.Message)
	} else {
		fmt.Printf("\033[36m[%s]\033[0m %s\n", env.AgentUsed, env.Message)
	}
	return env.SessionID
}

// routeMessage handles "@agent_name some input" by calling the direct
// routing endpoint, bypassing classification.
func routeMessage(server, session, input string) string {
	parts := strings.SplitN(strings.TrimPrefix(input, "@"), " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		printError("Usage: @agent_name <message>")
		return session
	}
	name, text := parts[0], strings.TrimSpace(parts[1])

	body, _ := json.Marshal(map[string]string{
		"input":      text,
		"session_id": session,
	})

	client := &http.Client{Timeout: 65 * time.Second}
	resp, err := client.Post(server+"/api/agents/"+name+"/route", "application/json", bytes.NewReader(body))
	if err != nil {
		printError("Request failed: %v", err)
		return session
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		printError("Failed to parse response: %v", err)
		return session
	}
	if errMsg, ok := out["error"].(string); ok {
		printError("%s", errMsg)
		return session
	}
	if msg, ok := out["message"].(string); ok {
		fmt.Printf("\033[36m[%s]\033[0m %s\n", name, msg)
	}
	if sid, ok := out["session_id"].(string); ok && sid != "" {
		return sid
	}
	return session
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
