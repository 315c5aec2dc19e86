package impl

import (
	"net/url"
	"strings"

	"acmauth/internal/domain/entity"
	"acmauth/internal/domain/service"
)

func (srv *accountService) confirmEmailMessage(account *entity.Account) service.Message {
	return service.Message{
		To:      account.Email,
		Subject: "Confirm your ACM account",
		Body: "Thanks for signing up.\n\n" +
			"Please click on the following link, or paste it into your browser, to verify your email address:\n\n" +
			srv.link("users", "confirm", account.ConfirmEmailToken) + "\n",
	}
}

func (srv *accountService) resetLinkMessage(account *entity.Account) service.Message {
	return service.Message{
		To:      account.Email,
		Subject: "ACM password reset",
		Body: "You are receiving this because you (or someone else) have requested the reset of the password for your account.\n\n" +
			"Please click on the following link, or paste it into your browser, to complete the process:\n\n" +
			srv.link("users", "reset", account.ResetPasswordToken) + "\n\n" +
			"If you did not request this, please ignore this email and your password will remain unchanged.\n",
	}
}

func passwordChangedMessage(account *entity.Account) service.Message {
	return service.Message{
		To:      account.Email,
		Subject: "Your password has been changed",
		Body: "Hello,\n\n" +
			"This is a confirmation that the password for your account " + account.Email + " has been changed.\n",
	}
}

func (srv *accountService) contactMessage(name, replyTo, body string) service.Message {
	sender := name
	if replyTo != "" {
		sender += " <" + replyTo + ">"
	}

	return service.Message{
		To:      srv.policy.contactAddress,
		Subject: "ACM Question",
		Body:    "Sender: " + sender + "\n\nMessage:\n" + body + "\n",
		ReplyTo: replyTo,
	}
}

// link joins the configured base URL with the given path segments.
func (srv *accountService) link(segments ...string) string {
	base := srv.policy.baseURL
	if base == "" {
		return "/" + strings.Join(segments, "/")
	}

	joined, err := url.JoinPath(base, segments...)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
	}

	return joined
}
