package mailer

import (
	"fmt"
	"time"
)

// PasswordReset renders the reset email. link carries the correlation
// token; the passcode is shown separately.
func PasswordReset(to, link, otp string, ttl time.Duration) Message {
	return Message{
		To:      []string{to},
		Subject: "Your password reset code",
		Text: fmt.Sprintf("We received a request to reset the password for your account.\n\n"+
			"Open %s and enter the code %s. The code expires in %s.\n\n"+
			"If you did not request a password reset you can ignore this email.", link, otp, ttl),
		HTML: fmt.Sprintf(`<p>We received a request to reset the password for your account.</p>
<p>Open <a href="%s">%s</a> and enter the code <strong>%s</strong>. The code expires in %s.</p>
<p>If you did not request a password reset you can ignore this email.</p>`, link, link, otp, ttl),
	}
}

// EmailVerification renders the verification email carrying the passcode.
func EmailVerification(to, otp string, ttl time.Duration) Message {
	return Message{
		To:      []string{to},
		Subject: "Verify your email address",
		Text:    fmt.Sprintf("Your verification code is %s. It expires in %s.", otp, ttl),
		HTML:    fmt.Sprintf(`<p>Your verification code is <strong>%s</strong>. It expires in %s.</p>`, otp, ttl),
	}
}
