// Package metadata builds the off-chain token metadata document and reads
// on-chain token metadata accounts.
package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"solana-token-studio/internal/domain"
)

// User-facing messages.
const (
	MsgImageRequired       = "Please upload Image!"
	MsgInvalidTokenAddress = "Please input valid token address"
)

// ErrImageRequired is returned when building a document before an image URL exists.
var ErrImageRequired = errors.New("image url required before building metadata")

// Fixed parts of the document schema.
const (
	CollectionFamily = "Solflare"
	ImageFileType    = "image/png"
	ContentTypeJSON  = "application/json"
)

// BuildDocument assembles the metadata document from form fields and the
// uploaded image URL. Only the image URL is required.
func BuildDocument(form domain.FormFields, imageURL string) (domain.MetadataDocument, error) {
	if strings.TrimSpace(imageURL) == "" {
		return domain.MetadataDocument{}, ErrImageRequired
	}

	return domain.MetadataDocument{
		Name:                 form.Name,
		Symbol:               form.Symbol,
		Description:          form.Description,
		SellerFeeBasisPoints: 0,
		Image:                imageURL,
		ExternalURL:          form.Website,
		Website:              form.Website,
		Twitter:              form.Twitter,
		Telegram:             form.Telegram,
		Discord:              form.Discord,
		Attributes: []domain.Attribute{
			{TraitType: "web", Value: "yes"},
			{TraitType: "mobile", Value: "yes"},
			{TraitType: "extension", Value: "yes"},
			{TraitType: "twitter", Value: form.Twitter},
			{TraitType: "telegram", Value: form.Telegram},
			{TraitType: "discord", Value: form.Discord},
		},
		Collection: domain.Collection{Name: form.Name, Family: CollectionFamily},
		Properties: domain.Properties{
			Files: []domain.File{{URI: imageURL, Type: ImageFileType}},
			Socials: domain.Socials{
				Twitter:  form.Twitter,
				Discord:  form.Discord,
				Website:  form.Website,
				Telegram: form.Telegram,
			},
		},
	}, nil
}

// Encode serialises doc as compact JSON without HTML escaping, so URLs with
// query strings are stored as typed.
func Encode(doc domain.MetadataDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode metadata document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
