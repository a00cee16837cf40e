package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mediacrawl/pkg/auth"
	"mediacrawl/pkg/crawler"
	"mediacrawl/pkg/douyin"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored platform sessions",
	Long: `Manage stored platform sessions securely.

Sessions are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (MEDIACRAWL_COOKIES, read-only)

Never share your cookies or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [platform]",
	Short: "Store a platform session securely",
	Long: `Store a platform session securely in the system keychain or an
encrypted file.

You will be prompted for:
  - Platform identifier (if not provided), e.g. dy
  - The full Cookie header of a logged-in browser session
  - User agent (optional, press Enter for default)`,
	Example: `  # Interactive login
  mediacrawl auth login

  # Login for a specific platform
  mediacrawl auth login dy`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [platform]",
	Short: "Remove a stored session",
	Long: `Remove a stored platform session.

If no platform is provided, you will be shown a list of stored sessions
to choose from.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored sessions",
	Long:  `List all stored platform sessions with sanitized cookie values.`,
	Run:   runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authListCmd)
}

// platformHomes maps platform identifiers to their login pages, for the
// extraction guide.
var platformHomes = map[string]string{
	string(crawler.PlatformDouyin): douyin.HomeURL,
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fatal("failed to initialize credential manager", err)
	}

	reader := bufio.NewReader(os.Stdin)

	var platform string
	if len(args) > 0 {
		platform = args[0]
	} else {
		fmt.Print("Platform identifier (e.g. dy): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fatal("failed to read platform", err)
		}
		platform = strings.TrimSpace(input)
	}
	if platform == "" {
		fatal("platform is required", nil)
	}

	home := platformHomes[platform]
	if home == "" {
		home = "the platform's web home page"
	}
	auth.ShowCookieExtractionGuide(platform, home)

	fmt.Print("Ready to enter your cookies? (Y/n): ")
	ready, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(ready)) == "n" {
		fmt.Println("\nRun 'mediacrawl auth login' when you're ready.")
		return
	}

	if existing, _ := manager.Retrieve(platform); existing != nil {
		fmt.Printf("\nA session for '%s' already exists. Update it? (y/N): ", platform)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Println("\nEnter the Cookie header value (it will be hidden as you type):")

	var cookies string
	for {
		fmt.Print("Cookie: ")
		cookies, err = readPassword()
		if err != nil {
			fatal("failed to read cookies", err)
		}

		if len(cookies) < 20 || !strings.Contains(cookies, "=") {
			fmt.Println("\nThat doesn't look like a Cookie header.")
			fmt.Println("   It should be a long string of name=value pairs joined by semicolons.")
			fmt.Print("\nTry again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				os.Exit(1)
			}
			continue
		}
		break
	}

	fmt.Print("\nUser Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	account := &auth.Account{
		Platform:     platform,
		Cookies:      cookies,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}

	fmt.Println("\nStoring session securely...")
	if err := manager.Store(account); err != nil {
		fatal("failed to store session", err)
	}

	fmt.Println("Session stored.")
	fmt.Println("\nYour cookies are encrypted and stored in:")
	if auth.IsKeyringAvailable() {
		fmt.Println("  - System keychain (primary)")
	}
	fmt.Println("  - Encrypted file (backup)")

	fmt.Println("\nStart a crawl with:")
	fmt.Printf("  mediacrawl crawl --platform %s --type search --keywords <keyword> --login-type cookie\n", platform)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fatal("failed to initialize credential manager", err)
	}

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			fatal("failed to remove session", err)
		}
		fmt.Println("Session removed:", args[0])
		return
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		fmt.Println("No stored sessions found.")
		return
	}

	fmt.Println("Select session to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Platform)
	}
	fmt.Printf("  %d. Remove all sessions\n", len(accounts)+1)
	fmt.Printf("  0. Cancel\n\n")

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return
	case choice == len(accounts)+1:
		fmt.Print("Remove ALL sessions? This cannot be undone! (yes/N): ")
		confirm, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirm) != "yes" {
			return
		}
		if err := manager.DeleteAll(); err != nil {
			fatal("failed to remove all sessions", err)
		}
		fmt.Println("All sessions removed.")
	case choice > 0 && choice <= len(accounts):
		account := accounts[choice-1]
		if err := manager.Delete(account.Platform); err != nil {
			fatal("failed to remove session", err)
		}
		fmt.Println("Session removed:", account.Platform)
	default:
		fatal("invalid choice", nil)
	}
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fatal("failed to initialize credential manager", err)
	}

	accounts, err := manager.List()
	if err != nil {
		fatal("failed to list sessions", err)
	}

	if len(accounts) == 0 {
		fmt.Println("No stored sessions. Use 'mediacrawl auth login' to add one.")
		return
	}

	fmt.Println("Stored sessions:")
	fmt.Println()
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Platform: %s\n", i+1, sanitized.Platform)
		fmt.Printf("   Cookies: %s\n", sanitized.Cookies)
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readPassword reads a value from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		value, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(value)), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
