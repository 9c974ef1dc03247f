// Package services implements the Google Photos Picker pipeline.
//
// # Authentication
//
// [NewGoogleOAuthConfig] builds the OAuth client registration once at startup. [OAuthFlow]
// issues single-use state tokens and exchanges the callback code. [CredentialStore] keeps the
// one linked credential in a JSON file and refreshes it under a mutex, so concurrent callers
// never trigger more than one refresh.
//
// # Picker sessions
//
// [PickerClient] creates and polls sessions and lists picked items. It never waits for the
// user; a 401 from the provider triggers one token refresh and one retry. Provider failures
// are [ProviderError] values that unwrap to the operation's sentinel in the shared package.
//
// # Import
//
// [Importer] downloads each picked item through its signed base URL, classifies it with
// [ClassifyMedia], shrinks images with [Optimizer] and writes the result through [Storage]
// ([LocalStorage] or [GCSStorage]). Per-item failures are recorded in the
// [models.ImportResult] and never abort the batch.
package services
