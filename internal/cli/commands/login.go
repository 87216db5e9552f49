package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/mindpeers/client/internal/cli/ui"
	"github.com/zhouzirui/mindpeers/client/internal/service/session"
)

const consentTerms = `MindPeers is a supportive space, not a substitute for professional care.
Your messages are analysed to detect distress so that support and crisis
resources can be shown to you. If you are in immediate danger, call 911
or the 988 Suicide & Crisis Lifeline.`

var (
	loginEmail string
	loginPhone string
	loginAgree bool
)

// loginCmd is the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "sign in and record consent",
	Long: `Sign in with your email address and record your consent.

Your identity is stored locally (MINDPEERS_IDENTITY_FILE, by default
~/.mindpeers/identity.yaml) and reused by later commands until you log out.
An optional emergency contact number is sent with your consent.`,
	Example: `  # Interactive login
  $ mindpeers login

  # Non-interactive login
  $ mindpeers login -e you@example.com --agree --phone "+1 555 0100"`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Email address")
	loginCmd.Flags().StringVar(&loginPhone, "phone", "", "Emergency contact phone (optional)")
	loginCmd.Flags().BoolVar(&loginAgree, "agree", false, "Accept the terms without prompting")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	// 1. Prompt for email if not provided
	if loginEmail == "" {
		prompt := &survey.Input{Message: "Email:"}
		if err := survey.AskOne(prompt, &loginEmail, survey.WithValidator(survey.Required)); err != nil {
			ui.PrintError("failed to read email: %v", err)
			return fmt.Errorf("input failed")
		}
	}

	// 2. Exchange email for identity
	ui.PrintInfo("Connecting to %s...", current.Client.Server())
	identity, err := current.Session.Login(ctx, loginEmail)
	if err != nil {
		var fieldErr *session.FieldError
		if errors.As(err, &fieldErr) {
			ui.PrintErrorBox("Login Failed", fieldErr.Message)
		} else {
			ui.PrintError("%v", err)
		}
		return fmt.Errorf("login failed")
	}

	// 3. Consent
	if err := askConsent(ctx); err != nil {
		return err
	}

	ui.PrintSuccessBox("✓ Welcome to MindPeers", fmt.Sprintf(`Email:    %s
User ID:  %s`, identity.Email, identity.UserID))

	ui.Println("")
	ui.PrintInfo("You can now use the following commands:")
	ui.PrintBold("  mindpeers chat    # Start talking")
	ui.PrintBold("  mindpeers trend   # See your mood timeline")
	return nil
}

// askConsent shows the terms, collects the optional phone and records consent.
func askConsent(ctx context.Context) error {
	ui.PrintInfoBox("Before we begin", consentTerms)

	if !loginAgree {
		prompt := &survey.Confirm{Message: "I understand and agree", Default: false}
		if err := survey.AskOne(prompt, &loginAgree); err != nil {
			ui.PrintError("failed to read answer: %v", err)
			return fmt.Errorf("input failed")
		}
		if !loginAgree {
			ui.PrintWarning("consent is required to continue; run 'mindpeers login' again when ready")
			return fmt.Errorf("consent declined")
		}

		if loginPhone == "" {
			prompt := &survey.Input{Message: "Emergency contact phone (optional):"}
			if err := survey.AskOne(prompt, &loginPhone); err != nil {
				ui.PrintError("failed to read phone: %v", err)
				return fmt.Errorf("input failed")
			}
		}
	}

	if err := current.Session.Consent(ctx, loginPhone); err != nil {
		var fieldErr *session.FieldError
		if errors.As(err, &fieldErr) {
			ui.PrintErrorBox("Consent Failed", fieldErr.Message)
		} else {
			ui.PrintError("%v", err)
		}
		return fmt.Errorf("consent failed")
	}
	return nil
}
