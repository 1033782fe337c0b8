package domain

// HeadRole identifies a node under a document head that must exist exactly
// once. A role names the element, the attribute pair that keys it, and the
// attribute that carries its value.
type HeadRole struct {
	Name      string
	Element   string // link, meta
	KeyAttr   string // rel, name
	KeyValue  string
	ValueAttr string // href, content
	// Token matches KeyValue as one whitespace-separated token of KeyAttr
	// rather than the whole attribute, so rel="shortcut icon" is an icon
	Token bool
}

var (
	// RoleTouchIcon is the icon used when the page is added to a home screen
	RoleTouchIcon = HeadRole{
		Name:      "touch-icon",
		Element:   "link",
		KeyAttr:   "rel",
		KeyValue:  "apple-touch-icon",
		ValueAttr: "href",
	}

	// RoleAppTitle is the app name shown under the home screen icon
	RoleAppTitle = HeadRole{
		Name:      "app-title",
		Element:   "meta",
		KeyAttr:   "name",
		KeyValue:  "apple-mobile-web-app-title",
		ValueAttr: "content",
	}

	// RoleIcon is the regular favicon declared by the host page config
	RoleIcon = HeadRole{
		Name:      "icon",
		Element:   "link",
		KeyAttr:   "rel",
		KeyValue:  "icon",
		ValueAttr: "href",
		Token:     true,
	}

	// RoleManifest links the web app manifest
	RoleManifest = HeadRole{
		Name:      "manifest",
		Element:   "link",
		KeyAttr:   "rel",
		KeyValue:  "manifest",
		ValueAttr: "href",
	}
)

// Selector returns the CSS selector matching nodes of this role
func (r HeadRole) Selector() string {
	op := "="
	if r.Token {
		op = "~="
	}
	return r.Element + `[` + r.KeyAttr + op + `"` + r.KeyValue + `"]`
}

// IdentityRoles are the roles an identity application upserts, in order
func IdentityRoles() []HeadRole {
	return []HeadRole{RoleTouchIcon, RoleAppTitle}
}
