package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/crucial707/userdir/cmd/cli/config"
	"github.com/crucial707/userdir/cmd/cli/output"
)

// user mirrors the fields the API returns for an account.
type user struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// listEnvelope is the paged response of GET /users.
type listEnvelope struct {
	Items []user `json:"items"`
	Total int    `json:"total"`
}

// ==========================
// Init Users
// ==========================
func InitUsers(rootCmd *cobra.Command) {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	usersCmd.AddCommand(
		createUserCmd(),
		listUsersCmd(),
		getUserCmd(),
		updateUserCmd(),
		deleteUserCmd(),
	)

	rootCmd.AddCommand(usersCmd)
}

// ==========================
// CREATE
// ==========================
func createUserCmd() *cobra.Command {
	var username, password, firstName, lastName, email string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Long:  "Create a new account. Registration is open, so no token is needed.",
		Run: func(cmd *cobra.Command, args []string) {
			payload := map[string]string{
				"username":   username,
				"password":   password,
				"first_name": firstName,
				"last_name":  lastName,
				"email":      email,
			}
			body, _ := json.Marshal(payload)

			req, _ := http.NewRequest("POST", config.APIURL()+"/users", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			attachToken(req)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusCreated {
				printError(resp)
				return
			}

			printJSON(resp.Body)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username for the new account")
	cmd.Flags().StringVar(&password, "password", "", "password for the new account")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "email address")

	return cmd
}

// ==========================
// LIST
// ==========================
func listUsersCmd() *cobra.Command {
	var asJSON bool
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts (staff only)",
		Run: func(cmd *cobra.Command, args []string) {
			token, err := config.ReadToken()
			if err != nil {
				fmt.Println("Please login first")
				return
			}

			url := fmt.Sprintf("%s/users?limit=%d&offset=%d", config.APIURL(), limit, offset)
			req, _ := http.NewRequest("GET", url, nil)
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				printError(resp)
				return
			}

			var env listEnvelope
			if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
				fmt.Println(err)
				return
			}

			if asJSON {
				b, _ := json.MarshalIndent(env.Items, "", "  ")
				fmt.Println(string(b))
				return
			}

			rows := make([][]interface{}, 0, len(env.Items))
			for _, u := range env.Items {
				rows = append(rows, []interface{}{u.ID, u.Username, u.FirstName, u.LastName, u.Email})
			}
			output.RenderTable(
				[]string{"ID", "USERNAME", "FIRST NAME", "LAST NAME", "EMAIL"},
				rows,
				[]interface{}{"", "", "", "TOTAL", env.Total},
			)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON instead of a table")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")

	return cmd
}

// ==========================
// GET
// ==========================
func getUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Show one user account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			token, err := config.ReadToken()
			if err != nil {
				fmt.Println("Please login first")
				return
			}

			req, _ := http.NewRequest("GET", config.APIURL()+"/users/"+args[0], nil)
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				printError(resp)
				return
			}

			printJSON(resp.Body)
		},
	}
}

// ==========================
// UPDATE
// ==========================
func updateUserCmd() *cobra.Command {
	var username, password, firstName, lastName, email string

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update a user account",
		Long:  "Replace the account's fields. Only the owner or staff may do this.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			token, err := config.ReadToken()
			if err != nil {
				fmt.Println("Please login first")
				return
			}

			payload := map[string]string{
				"username":   username,
				"password":   password,
				"first_name": firstName,
				"last_name":  lastName,
				"email":      email,
			}
			body, _ := json.Marshal(payload)

			req, _ := http.NewRequest("PUT", config.APIURL()+"/users/"+args[0], bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				printError(resp)
				return
			}

			printJSON(resp.Body)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "new username")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().StringVar(&firstName, "first-name", "", "new first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "new last name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")

	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a user account",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			token, err := config.ReadToken()
			if err != nil {
				fmt.Println("Please login first")
				return
			}

			req, _ := http.NewRequest("DELETE", config.APIURL()+"/users/"+args[0], nil)
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNoContent {
				fmt.Println("User deleted")
			} else {
				printError(resp)
			}
		},
	}
}

// ==========================
// Helpers
// ==========================

// attachToken adds the stored token when one exists. Creation works
// anonymously; with a token the server records the actor in the audit log.
func attachToken(req *http.Request) {
	if token, err := config.ReadToken(); err == nil {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printJSON(r io.Reader) {
	var out any
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		fmt.Println(err)
		return
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func printError(resp *http.Response) {
	body, _ := io.ReadAll(resp.Body)
	var e struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil && e.Detail != "" {
		fmt.Printf("API error (%d): %s\n", resp.StatusCode, e.Detail)
		return
	}
	fmt.Printf("API error (%d): %s\n", resp.StatusCode, string(body))
}
