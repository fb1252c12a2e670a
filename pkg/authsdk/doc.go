/*
Package authsdk provides a client SDK for the Zenith authentication service.

# SDKClient vs Session

  - SDKClient: unauthenticated operations (register, login, refresh, health)
  - Session: authenticated operations with automatic access token refresh

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Login(ctx, "ada@example.com", password)
	var challenge *authsdk.TwoFactorRequiredError
	if errors.As(err, &challenge) {
		// The identity has a second factor; complete the login with it.
		session, err = client.VerifyTwoFactor(ctx, challenge.PendingLoginID, otpCode, "")
	}

# Automatic Token Refresh

Access tokens live for minutes, refresh tokens for days. Every Session
method calls getValidToken() first, which refreshes the access token 30
seconds before it expires. Refresh tokens are never rotated: the one handed
out at login stays valid until the session is revoked or expires.

# Error Handling

Failed calls return an *APIError whose Code is one of the ErrorCode
constants. Predefined errors match with errors.Is:

	if errors.Is(err, authsdk.ErrSessionRevoked) {
		// sign in again
	}

Rate limited responses carry RetryAfter.

# Thread Safety

Sessions are safe for concurrent use.
*/
package authsdk
