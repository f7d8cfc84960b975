package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/mwestra/aurora/internal/client/api"
	"github.com/mwestra/aurora/internal/client/appearance"
	"github.com/mwestra/aurora/internal/client/session"
	"github.com/mwestra/aurora/internal/models"
	"github.com/mwestra/aurora/internal/palette"
)

var (
	version   string
	buildDate string
)

// fileStorage persists the appearance preference as a JSON file next to
// the binary.
type fileStorage struct {
	path string
}

func (s *fileStorage) Load() ([]byte, error) {
	return os.ReadFile(s.path)
}

func (s *fileStorage) Save(data []byte) error {
	return os.WriteFile(s.path, data, 0o600)
}

// staticSystemTheme reports a fixed OS theme. A terminal has no live
// light/dark signal, so the subscription never fires.
type staticSystemTheme struct {
	theme appearance.Theme
}

func (s *staticSystemTheme) Current() appearance.Theme {
	return s.theme
}

func (s *staticSystemTheme) Subscribe(func(appearance.Theme)) (cancel func()) {
	return func() {}
}

// terminalTarget prints applied appearance state to stdout.
type terminalTarget struct{}

func (terminalTarget) SetTheme(theme appearance.Theme) {
	fmt.Printf("theme: %s\n", theme)
}

func (terminalTarget) SetPalette(name string) {
	fmt.Printf("palette: %s\n", name)
}

func (terminalTarget) SetTokens(vars map[string]string) {
	fmt.Printf("custom tokens applied (%d variables)\n", len(vars))
}

func (terminalTarget) ClearTokens() {}

// promptSeeds reads the ten seed colors interactively.
func promptSeeds(scanner *bufio.Scanner) (models.PaletteSeeds, bool) {
	var seeds models.PaletteSeeds
	fields := []struct {
		label string
		dst   *string
	}{
		{"background", &seeds.Background},
		{"text", &seeds.Text},
		{"primary", &seeds.Primary},
		{"secondary", &seeds.Secondary},
		{"accent", &seeds.Accent},
		{"success", &seeds.Success},
		{"warning", &seeds.Warning},
		{"danger", &seeds.Danger},
		{"info", &seeds.Info},
		{"neutral", &seeds.Neutral},
	}
	for _, f := range fields {
		fmt.Printf("%s (#rrggbb): ", f.label)
		if !scanner.Scan() {
			return seeds, false
		}
		*f.dst = strings.TrimSpace(scanner.Text())
	}
	return seeds, true
}

func printUser(u *models.User) {
	fmt.Printf("%s %s <%s> confirmed=%v\n", u.FirstName, u.LastName, u.Email, u.EmailConfirmed)
}

// repl runs the interactive shell loop.
func repl(client *api.Client, sess *session.Controller, resolver *appearance.Resolver) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("aurora> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Account:    sign-up <first> <last> <email> <password>, confirm-email <email> <code>,")
			fmt.Println("            login <email> <password> [remember], logout, me, refresh")
			fmt.Println("Password:   forgot-password <email>, verify-forgot-password <email> <code>,")
			fmt.Println("            set-password <password>, change-password <current> <new>")
			fmt.Println("Email:      request-email-change <new-email>, confirm-email-change <new-email> <code>")
			fmt.Println("Appearance: theme <system|light|dark>, presets, palettes,")
			fmt.Println("            palette <preset-name|palette-id>, create-palette <name>, update-palette <id> <name>")
			fmt.Println("Other:      exit")
		case "sign-up":
			if len(args) < 5 {
				fmt.Println("Usage: sign-up <first> <last> <email> <password>")
				continue
			}
			id, err := client.SignUp(ctx, args[1], args[2], args[3], args[4])
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("Signed up, user id %s. Check your email for a confirmation code.\n", id)
		case "confirm-email":
			if len(args) < 3 {
				fmt.Println("Usage: confirm-email <email> <code>")
				continue
			}
			if err := client.ConfirmEmail(ctx, args[1], args[2]); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("Email confirmed")
		case "login":
			if len(args) < 3 {
				fmt.Println("Usage: login <email> <password> [remember]")
				continue
			}
			remember := len(args) > 3 && args[3] == "remember"
			user, err := client.LogIn(ctx, args[1], args[2], remember)
			if err != nil {
				fmt.Println(err)
				continue
			}
			sess.SetUser(user)
			if err := resolver.HandleLogin(ctx); err != nil {
				fmt.Println("appearance sync failed:", err)
			}
			printUser(user)
		case "logout":
			if err := client.LogOut(ctx); err != nil {
				fmt.Println(err)
			}
			sess.SetUser(nil)
			resolver.HandleLogout()
			fmt.Println("Logged out")
		case "me":
			if user := sess.User(); user != nil {
				printUser(user)
				continue
			}
			fmt.Println("Not logged in")
		case "refresh":
			if err := sess.Refresh(ctx, true); err != nil {
				fmt.Println(err)
				continue
			}
			printUser(sess.User())
		case "forgot-password":
			if len(args) < 2 {
				fmt.Println("Usage: forgot-password <email>")
				continue
			}
			if err := client.ForgotPassword(ctx, args[1]); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("If that address exists, a reset code was sent")
		case "verify-forgot-password":
			if len(args) < 3 {
				fmt.Println("Usage: verify-forgot-password <email> <code>")
				continue
			}
			user, err := client.VerifyForgotPassword(ctx, args[1], args[2])
			if err != nil {
				fmt.Println(err)
				continue
			}
			sess.SetUser(user)
			fmt.Println("Code accepted, set a new password with: set-password <password>")
		case "set-password":
			if len(args) < 2 {
				fmt.Println("Usage: set-password <password>")
				continue
			}
			if err := client.SetPassword(ctx, args[1]); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("Password set")
		case "change-password":
			if len(args) < 3 {
				fmt.Println("Usage: change-password <current> <new>")
				continue
			}
			if err := client.ChangePassword(ctx, args[1], args[2]); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("Password changed")
		case "request-email-change":
			if len(args) < 2 {
				fmt.Println("Usage: request-email-change <new-email>")
				continue
			}
			if err := client.RequestEmailChange(ctx, args[1]); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("If that address is available, a confirmation code was sent to it")
		case "confirm-email-change":
			if len(args) < 3 {
				fmt.Println("Usage: confirm-email-change <new-email> <code>")
				continue
			}
			if err := client.ConfirmEmailChange(ctx, args[1], args[2]); err != nil {
				fmt.Println(err)
				continue
			}
			if err := sess.Refresh(ctx, true); err != nil {
				fmt.Println(err)
				continue
			}
			printUser(sess.User())
		case "theme":
			if len(args) < 2 {
				fmt.Printf("Mode: %s, resolved theme: %s\n", resolver.Mode(), resolver.Theme())
				continue
			}
			if err := resolver.SetMode(appearance.Mode(args[1])); err != nil {
				fmt.Println(err)
			}
		case "presets":
			for _, p := range palette.Presets {
				fmt.Println(p)
			}
		case "palettes":
			active := resolver.ActivePalette()
			if active.Type == models.SelectionPreset {
				fmt.Printf("* %s (preset)\n", active.Preset)
			}
			for _, p := range resolver.Palettes() {
				marker := " "
				if active.Type == models.SelectionCustom && active.CustomID == p.ID {
					marker = "*"
				}
				fmt.Printf("%s %s  %s\n", marker, p.ID, p.Name)
			}
		case "palette":
			if len(args) < 2 {
				fmt.Println("Usage: palette <preset-name|palette-id>")
				continue
			}
			var err error
			if id, parseErr := uuid.Parse(args[1]); parseErr == nil {
				err = resolver.SelectCustom(ctx, id)
			} else {
				err = resolver.SelectPreset(ctx, args[1])
			}
			if err != nil {
				fmt.Println(err)
			}
		case "create-palette":
			if len(args) < 2 {
				fmt.Println("Usage: create-palette <name>")
				continue
			}
			seeds, ok := promptSeeds(scanner)
			if !ok {
				return
			}
			created, err := resolver.CreatePalette(ctx, strings.Join(args[1:], " "), seeds)
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("Created %s (%s)\n", created.Name, created.ID)
		case "update-palette":
			if len(args) < 3 {
				fmt.Println("Usage: update-palette <id> <name>")
				continue
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				fmt.Println("invalid palette id")
				continue
			}
			seeds, ok := promptSeeds(scanner)
			if !ok {
				return
			}
			updated, err := resolver.UpdatePalette(ctx, id, strings.Join(args[2:], " "), seeds)
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("Updated %s (%s)\n", updated.Name, updated.ID)
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func main() {
	var (
		baseURL  string
		prefPath string
		osTheme  string
		showVer  bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&prefPath, "prefs", "appearance.json", "path to appearance preference file")
	flag.StringVar(&osTheme, "os-theme", "dark", "OS theme reported to the resolver: light | dark")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Aurora Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	client, err := api.New(baseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	system := &staticSystemTheme{theme: appearance.ThemeDark}
	if osTheme == "light" {
		system.theme = appearance.ThemeLight
	}

	sess := session.New(client)
	resolver := appearance.New(client, &fileStorage{path: prefPath}, terminalTarget{}, system)

	// Probe the server for an existing session before entering the shell.
	sess.Bootstrap(context.Background())
	if sess.IsLoggedIn() {
		if err := resolver.HandleLogin(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, "appearance sync failed:", err)
		}
	}

	repl(client, sess, resolver)
}
