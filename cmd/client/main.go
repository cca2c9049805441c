// secret-gateway 命令行客戶端。
// 加密在本地完成後才上傳；open 兌換連結並在本地解密。
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"secret-gateway/internal/client"
	"secret-gateway/internal/constants"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	expiry    string
	copyLink  bool
)

var rootCmd = &cobra.Command{
	Use:   "secret-client",
	Short: "Share one-time secrets through a secret-gateway server",
	Long: `secret-client encrypts a message locally and uploads only the
ciphertext. The decryption key travels in the link fragment and never
reaches the server. Every link works exactly once.`,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Encrypt a message from STDIN and print a one-time link",
	RunE:  runCreate,
}

var openCmd = &cobra.Command{
	Use:   "open <link>",
	Short: "Redeem a one-time link and print the decrypted message",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

var peekCmd = &cobra.Command{
	Use:   "peek <link>",
	Short: "Show how long a link stays valid without consuming it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeek,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server base URL")
	createCmd.Flags().StringVar(&expiry, "expiry", "1h", "Expiry choice: "+expiryChoicesHelp())
	createCmd.Flags().BoolVar(&copyLink, "copy", false, "Copy the link to the clipboard")
	rootCmd.AddCommand(createCmd, openCmd, peekCmd)
}

// expiryChoicesHelp 列出支援的過期時間枚舉
func expiryChoicesHelp() string {
	choices := make([]string, 0, len(constants.ExpiryChoices))
	for choice := range constants.ExpiryChoices {
		choices = append(choices, choice)
	}
	sort.Strings(choices)
	return strings.Join(choices, ", ")
}

func runCreate(cmd *cobra.Command, args []string) error {
	if _, ok := constants.ExpiryChoices[expiry]; !ok {
		return fmt.Errorf("unsupported expiry %q (choices: %s)", expiry, expiryChoicesHelp())
	}

	message, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	message = []byte(strings.TrimRight(string(message), "\n"))
	if len(message) == 0 {
		return fmt.Errorf("message cannot be empty")
	}
	if len([]rune(string(message))) > constants.DefaultMaxMessageChars {
		return fmt.Errorf("message exceeds %d characters", constants.DefaultMaxMessageChars)
	}

	result, err := client.New(serverURL).CreateSecret(string(message), expiry)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Expires at %s\n", result.ExpiresAt.Local().Format(time.RFC1123))
	fmt.Println(result.Link)

	if copyLink {
		if err := clipboard.WriteAll(result.Link); err != nil {
			fmt.Fprintf(os.Stderr, "Could not copy link to clipboard: %v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, "Link copied to clipboard")
		}
	}

	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	plaintext, err := client.New(serverURL).RedeemSecret(args[0])
	if err != nil {
		return err
	}

	// 明文走 stdout，提示走 stderr，方便管道使用
	fmt.Fprintln(os.Stderr, "Secret redeemed; the link is now dead.")
	fmt.Println(plaintext)
	return nil
}

func runPeek(cmd *cobra.Command, args []string) error {
	expiresAt, err := client.New(serverURL).PeekExpiry(args[0])
	if err != nil {
		return err
	}

	remaining := time.Until(expiresAt).Round(time.Second)
	fmt.Printf("Valid until %s (%s remaining)\n", expiresAt.Local().Format(time.RFC1123), remaining)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
