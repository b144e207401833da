package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "book":
		handleBook(args)
	case "loan":
		handleLoan(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: libris auth <register|login|logout|who>")
		return
	}

	switch args[0] {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func handleBook(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: libris book <list|get>")
		return
	}

	switch args[0] {
	case "list":
		listBooks(args[1:])
	case "get":
		getBook(args[1:])
	default:
		fmt.Printf("unknown book command: %s\n", args[0])
	}
}

func handleLoan(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: libris loan <list|borrow|return>")
		return
	}

	switch args[0] {
	case "list":
		listLoans(args[1:])
	case "borrow":
		borrowBook(args[1:])
	case "return":
		returnBook(args[1:])
	default:
		fmt.Printf("unknown loan command: %s\n", args[0])
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "first name")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *name == "" || *email == "" || *password == "" {
		fmt.Println("Error: name, email, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"name":     *name,
		"email":    *email,
		"password": *password,
	}

	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/users/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ User registered: %s\n", *email)
		if token, ok := result["token"].(string); ok {
			saveToken(token)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/users/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Book commands
func listBooks(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	page := fs.Int("page", 0, "page number")
	size := fs.Int("size", 20, "page size")
	fs.Parse(args)

	url := fmt.Sprintf("%s/books?page=%d&size=%d", getAPIURL(), *page, *size)
	req, _ := http.NewRequest("GET", url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Content       []map[string]interface{} `json:"content"`
		TotalElements int64                    `json:"totalElements"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tISBN\tAVAILABLE")
	for _, b := range result.Content {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", b["id"], b["title"], b["isbn"], b["available"])
	}
	w.Flush()
	fmt.Printf("%d books total\n", result.TotalElements)
}

func getBook(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: libris book get <book-id>")
		return
	}

	resp, err := http.Get(getAPIURL() + "/books/" + args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var book map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&book)
	if resp.StatusCode != 200 {
		fmt.Printf("✗ %v\n", book)
		return
	}
	out, _ := json.MarshalIndent(book, "", "  ")
	fmt.Println(string(out))
}

// Loan commands
func listLoans(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/loans", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var loans []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&loans)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBOOK\tUSER\tSTATUS\tDUE")
	for _, l := range loans {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", l["id"], l["bookId"], l["userId"], l["status"], l["dueDate"])
	}
	w.Flush()
}

func borrowBook(args []string) {
	fs := flag.NewFlagSet("borrow", flag.ExitOnError)
	userID := fs.Int64("user", 0, "user id")
	bookID := fs.Int64("book", 0, "book id")
	fs.Parse(args)

	if *userID <= 0 || *bookID <= 0 {
		fmt.Println("Error: user and book ids are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]int64{"userId": *userID, "bookId": *bookID}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/loans/borrow", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Loan created: %v (due %v)\n", result["id"], result["dueDate"])
	} else {
		fmt.Printf("✗ Borrow failed: %v\n", result)
	}
}

func returnBook(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: libris loan return <loan-id>")
		return
	}

	req, _ := http.NewRequest("POST", getAPIURL()+"/loans/return/"+args[0], nil)
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Loan %v returned\n", result["id"])
	} else {
		fmt.Printf("✗ Return failed: %v\n", result)
	}
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("LIBRIS_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.libris/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.libris", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`Libris CLI

Usage:
  libris <command> [options]

Commands:
  auth  User authentication (register, login, logout, who)
  book  Catalog operations (list, get)
  loan  Loan operations (list, borrow, return)
  help  Show this help message

Environment Variables:
  LIBRIS_API    API endpoint (default: http://localhost:8080/api)

Examples:
  libris auth register -name Ada -email ada@example.com -password secret123
  libris auth login -email ada@example.com -password secret123
  libris book list
  libris loan borrow -user 1 -book 3
  libris loan return 7
`)
}
