package domain

// MetadataDocument is the off-chain token metadata JSON uploaded to Arweave.
// Field order and names follow the token-metadata standard consumers expect.
type MetadataDocument struct {
	Name                 string      `json:"name"`
	Symbol               string      `json:"symbol"`
	Description          string      `json:"description"`
	SellerFeeBasisPoints int         `json:"seller_fee_basis_points"`
	Image                string      `json:"image"`
	ExternalURL          string      `json:"external_url"`
	Website              string      `json:"website"`
	Twitter              string      `json:"twitter"`
	Telegram             string      `json:"telegram"`
	Discord              string      `json:"discord"`
	Attributes           []Attribute `json:"attributes"`
	Collection           Collection  `json:"collection"`
	Properties           Properties  `json:"properties"`
}

// Attribute is a single trait entry.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Collection tags the token with a collection name and family.
type Collection struct {
	Name   string `json:"name"`
	Family string `json:"family"`
}

// Properties holds the file list and social links block.
type Properties struct {
	Files   []File  `json:"files"`
	Socials Socials `json:"socials"`
}

// File references an uploaded asset.
type File struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// Socials is the nested socials block.
type Socials struct {
	Twitter  string `json:"twitter"`
	Discord  string `json:"discord"`
	Website  string `json:"website"`
	Telegram string `json:"telegram"`
}

// FormFields is the user-editable input the metadata document is built from.
type FormFields struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Twitter     string `json:"twitter"`
	Telegram    string `json:"telegram"`
	Discord     string `json:"discord"`
}

// OnChainMetadata is the decoded Metaplex metadata account.
// String fields are already trimmed of NUL padding.
type OnChainMetadata struct {
	UpdateAuthority      string
	Mint                 string
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

// DisplayMetadata is what the read path shows for a token.
type DisplayMetadata struct {
	Mint                 string  `json:"mint"`
	MetadataAccount      string  `json:"metadata_account"`
	UpdateAuthority      string  `json:"update_authority"`
	Name                 string  `json:"name"`
	Symbol               string  `json:"symbol"`
	URI                  string  `json:"uri"`
	SellerFeeBasisPoints uint16  `json:"seller_fee_basis_points"`
	Image                *string `json:"image,omitempty"` // nil when uri is empty or has no image
}
