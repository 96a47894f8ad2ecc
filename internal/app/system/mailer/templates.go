// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// CredentialsEmailData holds data for the one-time credentials email
// sent when a registration is approved. Password is the only place the
// plaintext ever travels after the approval response.
type CredentialsEmailData struct {
	SiteName string
	FullName string
	TeamName string
	Email    string
	Password string
	LoginURL string
}

// BuildCredentialsEmail creates the account-provisioned email with both
// HTML and text bodies.
func BuildCredentialsEmail(to string, data CredentialsEmailData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("Your %s account for team %s", data.SiteName, data.TeamName),
		TextBody: buildCredentialsText(data),
		HTMLBody: buildCredentialsHTML(data),
	}
}

func buildCredentialsText(data CredentialsEmailData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Hi %s,\n\n", data.FullName))
	buf.WriteString(fmt.Sprintf("Your team %q has been approved for %s.\n\n", data.TeamName, data.SiteName))
	buf.WriteString("Sign in with these credentials and change your password:\n\n")
	buf.WriteString(fmt.Sprintf("  Email:    %s\n", data.Email))
	buf.WriteString(fmt.Sprintf("  Password: %s\n\n", data.Password))
	buf.WriteString(fmt.Sprintf("Sign in at: %s\n", data.LoginURL))
	return buf.String()
}

func buildCredentialsHTML(data CredentialsEmailData) string {
	tmpl := template.Must(template.New("credentials").Parse(credentialsHTMLTemplate))
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}

// RegistrationReceivedData holds data for the intake acknowledgement.
type RegistrationReceivedData struct {
	SiteName   string
	LeaderName string
	TeamName   string
}

// BuildRegistrationReceivedEmail acknowledges an intake submission.
func BuildRegistrationReceivedEmail(to string, data RegistrationReceivedData) Email {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Hi %s,\n\n", data.LeaderName))
	buf.WriteString(fmt.Sprintf("We received the registration for team %q.\n", data.TeamName))
	buf.WriteString("You will get another email once it has been reviewed.\n")
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("%s registration received", data.SiteName),
		TextBody: buf.String(),
	}
}

// RejectionEmailData holds data for the registration-rejected email.
type RejectionEmailData struct {
	SiteName   string
	LeaderName string
	TeamName   string
	Reason     string
}

// BuildRejectionEmail tells the leader their registration was declined.
func BuildRejectionEmail(to string, data RejectionEmailData) Email {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Hi %s,\n\n", data.LeaderName))
	buf.WriteString(fmt.Sprintf("The registration for team %q was not approved.\n\n", data.TeamName))
	if data.Reason != "" {
		buf.WriteString(fmt.Sprintf("Reason: %s\n\n", data.Reason))
	}
	buf.WriteString("You may submit a new registration.\n")
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("%s registration update", data.SiteName),
		TextBody: buf.String(),
	}
}

const credentialsHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Account Created</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151; line-height: 1.5;">
                Hi {{.FullName}},
              </p>
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Your team <strong>{{.TeamName}}</strong> has been approved. Sign in with these credentials and change your password:
              </p>
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 24px; margin-bottom: 24px;">
                <p style="margin: 0 0 8px; font-size: 14px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Email}}</p>
                <p style="margin: 0; font-size: 14px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Password}}</p>
              </div>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.LoginURL}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">
                      Sign In
                    </a>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you did not expect this email, please contact the event organizers.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
