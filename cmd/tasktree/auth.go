package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/tasktree/internal/apperr"
	"github.com/sandeepkv93/tasktree/internal/model"
)

const passwordEnv = "TASKTREE_PASSWORD"

func authCmds(configPath *string) []*cobra.Command {
	return []*cobra.Command{
		loginCmd(configPath),
		logoutCmd(configPath),
		whoamiCmd(configPath),
		registerCmd(configPath),
		verifyOTPCmd(configPath),
		resendOTPCmd(configPath),
	}
}

func passwordFlag(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if password == "" {
		return "", errors.New("password is required (--password or " + passwordEnv + ")")
	}
	return password, nil
}

func loginCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Sign in and store the session locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordFlag(cmd)
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			user, err := rt.manager.Login(cmd.Context(), model.Credentials{Email: args[0], Password: password})
			if err != nil {
				return errors.New(apperr.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringP("password", "p", "", "account password (or "+passwordEnv+")")
	return cmd
}

func logoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.manager.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func whoamiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, *configPath, func(_ context.Context, rt *runtime) error {
				user, _ := rt.manager.User()
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s dark-mode=%t\n", user.Name, user.Email, user.Role, rt.svc.DarkMode())
				return nil
			})
		},
	}
}

func registerCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register [name] [email]",
		Short: "Create an account; a verification code is sent by email",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordFlag(cmd)
			if err != nil {
				return err
			}
			role, _ := cmd.Flags().GetString("role")
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			msg, err := rt.manager.Register(cmd.Context(), model.Registration{
				Name:     args[0],
				Email:    args[1],
				Password: password,
				Role:     model.Role(strings.ToLower(role)),
			})
			if err != nil {
				return errors.New(apperr.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringP("password", "p", "", "account password (or "+passwordEnv+")")
	cmd.Flags().String("role", string(model.RoleSolo), "account role: solo, team or company")
	return cmd
}

func verifyOTPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-otp [email] [code]",
		Short: "Confirm a registration and sign in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			user, err := rt.manager.VerifyOTP(cmd.Context(), args[0], args[1])
			if err != nil {
				return errors.New(apperr.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verified, signed in as %s\n", user.Email)
			return nil
		},
	}
}

func resendOTPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resend-otp [email]",
		Short: "Send a new verification code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			msg, err := rt.manager.ResendOTP(cmd.Context(), args[0])
			if err != nil {
				return errors.New(apperr.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}
