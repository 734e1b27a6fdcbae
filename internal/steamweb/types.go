package steamweb

import (
	"encoding/json"

	"github.com/dealhound/steamdeals/internal/steamjson"
)

// Wire shapes for the public Steam endpoints. Kept separate from the exported
// types so callers never see the stringed/union quirks of the upstream schema.

type appListResponse struct {
	Response struct {
		Apps []modifiedApp `json:"apps"`
	} `json:"response"`
}

type modifiedApp struct {
	AppID             int64  `json:"appid"`
	Name              string `json:"name"`
	LastModified      int64  `json:"last_modified"`
	PriceChangeNumber int64  `json:"price_change_number"`
}

// priceEntry is one per-app envelope of the bulk price endpoint. Data is an
// object when pricing exists and an empty array when it does not; a pointer
// keeps an entirely absent or null field from reaching the union decoder.
type priceEntry struct {
	Success bool                           `json:"success"`
	Data    *steamjson.Union[priceData] `json:"data"`
}

type priceData struct {
	PriceOverview *priceOverview `json:"price_overview"`
}

type priceOverview struct {
	Currency         string `json:"currency"`
	Initial          int64  `json:"initial"`
	Final            int64  `json:"final"`
	DiscountPercent  int64  `json:"discount_percent"`
	InitialFormatted string `json:"initial_formatted"`
	FinalFormatted   string `json:"final_formatted"`
}

// detailsEnvelope defers the data payload so a malformed optional field in
// one entry cannot fail the whole document.
type detailsEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// appDetailCore carries the structurally required fields of a detail payload.
type appDetailCore struct {
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	SteamAppID  int64   `json:"steam_appid"`
	HeaderImage string  `json:"header_image"`
	Packages    []int64 `json:"packages"`
}

// appDetailExtra carries optional fields decoded best-effort; any of them may
// be absent or arrive in one of the API's alternate shapes.
type appDetailExtra struct {
	Genres         []genre                              `json:"genres"`
	PackageGroups  []packageGroup                       `json:"package_groups"`
	PCRequirements *steamjson.Union[requirements]       `json:"pc_requirements"`
	Platforms      *platforms                           `json:"platforms"`
}

type genre struct {
	ID          steamjson.StringedInt `json:"id"`
	Description string                `json:"description"`
}

type packageGroup struct {
	Name                    string                 `json:"name"`
	Title                   string                 `json:"title"`
	IsRecurringSubscription steamjson.StringedBool `json:"is_recurring_subscription"`
	Subs                    []packageSub           `json:"subs"`
}

type packageSub struct {
	PackageID                int64                 `json:"packageid"`
	CanGetFreeLicense        steamjson.StringedInt `json:"can_get_free_license"`
	IsFreeLicense            bool                  `json:"is_free_license"`
	PriceInCentsWithDiscount int64                 `json:"price_in_cents_with_discount"`
}

type requirements struct {
	Minimum     string `json:"minimum"`
	Recommended string `json:"recommended"`
}

type platforms struct {
	Windows bool `json:"windows"`
	Mac     bool `json:"mac"`
	Linux   bool `json:"linux"`
}

// AppDetail is the normalized per-app detail record handed to callers.
type AppDetail struct {
	AppID       uint32
	Type        string
	Name        string
	HeaderImage string
	Packages    []uint32
	Genres      []Genre
	Groups      []PackageGroup
	Windows     bool
	Mac         bool
	Linux       bool
}

// Genre is a normalized genre tag.
type Genre struct {
	ID          int64
	Description string
}

// PackageGroup is a normalized purchase option group.
type PackageGroup struct {
	Name                    string
	Title                   string
	IsRecurringSubscription bool
	Subs                    []PackageSub
}

// PackageSub is one purchasable option within a group.
type PackageSub struct {
	PackageID                uint32
	CanGetFreeLicense        int64
	IsFreeLicense            bool
	PriceInCentsWithDiscount int64
}
