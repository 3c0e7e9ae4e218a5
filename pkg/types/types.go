// pkg/types/types.go
package types

import (
	"time"
)

// PageType represents the classified type of a scraped page
type PageType string

const (
	PageTypeProduct    PageType = "product"
	PageTypeBlog       PageType = "blog"
	PageTypeCategory   PageType = "category"
	PageTypePage       PageType = "page"
	PageTypeCollection PageType = "collection"
	PageTypeForum      PageType = "forum"
	PageTypeSearch     PageType = "search"
	PageTypeError      PageType = "error"
	PageTypeSitemap    PageType = "sitemap"
	PageTypeRobots     PageType = "robots"
	PageTypeFeed       PageType = "feed"
	PageTypeUnknown    PageType = "unknown"
)

// ValidPageTypes returns all valid page type values
func ValidPageTypes() []PageType {
	return []PageType{
		PageTypeProduct, PageTypeBlog, PageTypeCategory, PageTypePage,
		PageTypeCollection, PageTypeForum, PageTypeSearch, PageTypeError,
		PageTypeSitemap, PageTypeRobots, PageTypeFeed, PageTypeUnknown,
	}
}

// IsValid checks if the page type is a valid value
func (pt PageType) IsValid() bool {
	for _, valid := range ValidPageTypes() {
		if pt == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the page type
func (pt PageType) String() string {
	return string(pt)
}

// Enrichable returns true if the page type supports LLM enrichment
func (pt PageType) Enrichable() bool {
	switch pt {
	case PageTypeProduct, PageTypeBlog, PageTypeCategory:
		return true
	default:
		return false
	}
}

// FieldKey identifies a target field for selector discovery and extraction.
// The set is closed: selector profiles never carry keys outside this list.
type FieldKey string

const (
	FieldTitle               FieldKey = "title"
	FieldMetaDescription     FieldKey = "metaDescription"
	FieldKeywords            FieldKey = "keywords"
	FieldOGImage             FieldKey = "ogImage"
	FieldCanonicalURL        FieldKey = "canonicalUrl"
	FieldPrice               FieldKey = "price"
	FieldStockStatus         FieldKey = "stockStatus"
	FieldProductImages       FieldKey = "productImages"
	FieldFeatures            FieldKey = "features"
	FieldProductCategory     FieldKey = "productCategory"
	FieldPublishDate         FieldKey = "publishDate"
	FieldBlogCategories      FieldKey = "blogCategories"
	FieldBlogContentSample   FieldKey = "blogContentSample"
	FieldCategoryName        FieldKey = "categoryName"
	FieldNavigationContainer FieldKey = "navigationContainer"
	FieldFooterContainer     FieldKey = "footerContainer"
	FieldBreadcrumbContainer FieldKey = "breadcrumbContainer"
)

// ValidFieldKeys returns all valid field keys in their canonical order
func ValidFieldKeys() []FieldKey {
	return []FieldKey{
		FieldTitle, FieldMetaDescription, FieldKeywords, FieldOGImage,
		FieldCanonicalURL, FieldPrice, FieldStockStatus, FieldProductImages,
		FieldFeatures, FieldProductCategory, FieldPublishDate,
		FieldBlogCategories, FieldBlogContentSample, FieldCategoryName,
		FieldNavigationContainer, FieldFooterContainer, FieldBreadcrumbContainer,
	}
}

// IsValid checks if the field key is a valid value
func (fk FieldKey) IsValid() bool {
	for _, valid := range ValidFieldKeys() {
		if fk == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the field key
func (fk FieldKey) String() string {
	return string(fk)
}

// RelevantPageTypes returns the page types a field is meaningful on.
// An empty result means the field applies to every page type.
func (fk FieldKey) RelevantPageTypes() []PageType {
	switch fk {
	case FieldPrice, FieldStockStatus, FieldProductImages, FieldFeatures, FieldProductCategory:
		return []PageType{PageTypeProduct}
	case FieldPublishDate, FieldBlogCategories, FieldBlogContentSample:
		return []PageType{PageTypeBlog}
	case FieldCategoryName:
		return []PageType{PageTypeCategory, PageTypeCollection}
	default:
		return nil
	}
}

// ExpectsMultiple returns true if the field normally yields more than one value
func (fk FieldKey) ExpectsMultiple() bool {
	switch fk {
	case FieldProductImages, FieldFeatures, FieldBlogCategories:
		return true
	default:
		return false
	}
}

// FetchStage tracks how far a page made it through the fetch pipeline
type FetchStage string

const (
	StageLightFetchPending FetchStage = "light_fetch_pending"
	StageLightFetchDone    FetchStage = "light_fetch_done"
	StageHeadlessPending   FetchStage = "headless_pending"
	StageHeadlessDone      FetchStage = "headless_done"
	StageEnrichmentPending FetchStage = "enrichment_pending"
	StageEnrichmentDone    FetchStage = "enrichment_done"
	StageFinalized         FetchStage = "finalized"
)

// ValidFetchStages returns all valid fetch stage values
func ValidFetchStages() []FetchStage {
	return []FetchStage{
		StageLightFetchPending, StageLightFetchDone,
		StageHeadlessPending, StageHeadlessDone,
		StageEnrichmentPending, StageEnrichmentDone,
		StageFinalized,
	}
}

// IsValid checks if the fetch stage is a valid value
func (fs FetchStage) IsValid() bool {
	for _, valid := range ValidFetchStages() {
		if fs == valid {
			return true
		}
	}
	return false
}

// String returns the string representation of the fetch stage
func (fs FetchStage) String() string {
	return string(fs)
}

// CanTransitionTo reports whether moving from this stage to next is legal.
// Headless and enrichment are each optional, so a done stage may skip ahead.
func (fs FetchStage) CanTransitionTo(next FetchStage) bool {
	allowed := map[FetchStage][]FetchStage{
		StageLightFetchPending: {StageLightFetchDone},
		StageLightFetchDone:    {StageHeadlessPending, StageEnrichmentPending, StageFinalized},
		StageHeadlessPending:   {StageHeadlessDone},
		StageHeadlessDone:      {StageEnrichmentPending, StageFinalized},
		StageEnrichmentPending: {StageEnrichmentDone},
		StageEnrichmentDone:    {StageFinalized},
		StageFinalized:         {},
	}
	for _, stage := range allowed[fs] {
		if stage == next {
			return true
		}
	}
	return false
}

// OutputFormat represents supported record export formats
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
	FormatExcel OutputFormat = "excel"
	FormatXML   OutputFormat = "xml"
	FormatYAML  OutputFormat = "yaml"
)

// ValidOutputFormats returns all valid output format values
func ValidOutputFormats() []OutputFormat {
	return []OutputFormat{FormatJSON, FormatCSV, FormatExcel, FormatXML, FormatYAML}
}

// IsValid checks if the output format is valid
func (of OutputFormat) IsValid() bool {
	for _, valid := range ValidOutputFormats() {
		if of == valid {
			return true
		}
	}
	return false
}

// GetFileExtension returns the appropriate file extension for the format
func (of OutputFormat) GetFileExtension() string {
	switch of {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	case FormatExcel:
		return ".xlsx"
	case FormatXML:
		return ".xml"
	case FormatYAML:
		return ".yaml"
	default:
		return ".txt"
	}
}

// JobStatus represents the state of an asynchronous crawl job
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// ValidJobStatuses returns all valid job status values
func ValidJobStatuses() []JobStatus {
	return []JobStatus{JobPending, JobRunning, JobCompleted, JobFailed, JobCancelled}
}

// IsValid checks if the job status is a valid value
func (js JobStatus) IsValid() bool {
	for _, valid := range ValidJobStatuses() {
		if js == valid {
			return true
		}
	}
	return false
}

// Terminal returns true once a job can no longer change state
func (js JobStatus) Terminal() bool {
	switch js {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// SelectorRule describes how to pull one field value out of a document
type SelectorRule struct {
	Selector     string `yaml:"selector" json:"selector"`
	Attribute    string `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	IsTabularRow bool   `yaml:"is_tabular_row,omitempty" json:"isTabularRow,omitempty"`
	JSONPath     string `yaml:"json_path,omitempty" json:"jsonPath,omitempty"`
}

// SiteSelectorProfile holds the selector rules known to work for one hostname.
// Rules per field are ordered: the first rule that yields a value wins.
type SiteSelectorProfile struct {
	Hostname  string                      `yaml:"hostname" json:"hostname"`
	Rules     map[FieldKey][]SelectorRule `yaml:"rules" json:"rules"`
	UpdatedAt time.Time                   `yaml:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// NewSiteSelectorProfile creates an empty profile for a hostname
func NewSiteSelectorProfile(hostname string) *SiteSelectorProfile {
	return &SiteSelectorProfile{
		Hostname: hostname,
		Rules:    make(map[FieldKey][]SelectorRule),
	}
}

// RulesFor returns the ordered rules for a field, or nil if none are known
func (p *SiteSelectorProfile) RulesFor(key FieldKey) []SelectorRule {
	if p == nil {
		return nil
	}
	return p.Rules[key]
}

// IsEmpty reports whether the profile carries no rules at all
func (p *SiteSelectorProfile) IsEmpty() bool {
	return p == nil || len(p.Rules) == 0
}

// FieldCount returns the number of fields with at least one rule
func (p *SiteSelectorProfile) FieldCount() int {
	if p == nil {
		return 0
	}
	return len(p.Rules)
}

// BreadcrumbItem is one entry of a page's breadcrumb trail
type BreadcrumbItem struct {
	Text     string `json:"text"`
	Href     string `json:"href,omitempty"`
	Position int    `json:"position"`
}

// ImageItem is one deduplicated page image with its absolute source URL
type ImageItem struct {
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
	HasAlt bool   `json:"hasAlt"`
}

// LinkItem is one hyperlink with its resolved target and anchor text
type LinkItem struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// Heading is one h1-h6 element in document order
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// ProductInfo carries the product-specific payload of a page record
type ProductInfo struct {
	Price       *string  `json:"price,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
	StockStatus *string  `json:"stockStatus,omitempty"`
	Features    []string `json:"features,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

// BlogInfo carries the article-specific payload of a page record
type BlogInfo struct {
	PublishDate   *string  `json:"publishDate,omitempty"`
	Author        *string  `json:"author,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	ContentSample *string  `json:"contentSample,omitempty"`
}

// CategoryInfo carries the category-page payload of a page record
type CategoryInfo struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Enrichment holds LLM-derived fields. The model's own type opinion is kept
// apart from the DOM-derived classification; the two may disagree and both
// are retained.
type Enrichment struct {
	AIDetectedType  *string      `json:"aiDetectedType,omitempty"`
	Title           *string      `json:"title,omitempty"`
	MetaDescription *string      `json:"metaDescription,omitempty"`
	Summary         *string      `json:"summary,omitempty"`
	Product         *ProductInfo `json:"product,omitempty"`
	Blog            *BlogInfo    `json:"blog,omitempty"`
	Category        *CategoryInfo `json:"category,omitempty"`
	Images          []string     `json:"images,omitempty"`
	Error           *string      `json:"error,omitempty"`
	EnrichedAt      *time.Time   `json:"enrichedAt,omitempty"`
}

// PageRecord is the normalized output of one page-processing attempt.
// Nullable fields mean "not found"; an empty string is never stored as a
// value. A recomputation from rendered HTML replaces the whole record, it
// does not merge into the earlier one.
type PageRecord struct {
	URL           string   `json:"url"`
	Hostname      string   `json:"hostname,omitempty"`
	PageTypeGuess PageType `json:"pageTypeGuess"`

	Title           *string  `json:"title,omitempty"`
	MetaDescription *string  `json:"metaDescription,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	CanonicalURL    *string  `json:"canonicalUrl,omitempty"`
	OGTitle         *string  `json:"ogTitle,omitempty"`
	OGDescription   *string  `json:"ogDescription,omitempty"`
	OGImage         *string  `json:"ogImage,omitempty"`
	OGType          *string  `json:"ogType,omitempty"`
	Language        *string  `json:"language,omitempty"`

	Product  *ProductInfo  `json:"product,omitempty"`
	Blog     *BlogInfo     `json:"blog,omitempty"`
	Category *CategoryInfo `json:"category,omitempty"`

	Headings      map[string][]string `json:"headings,omitempty"`
	HeadingsFlat  []Heading           `json:"headingsFlat,omitempty"`
	Images        []ImageItem         `json:"images,omitempty"`
	InternalLinks []LinkItem          `json:"internalLinks,omitempty"`
	ExternalLinks []LinkItem          `json:"externalLinks,omitempty"`
	NavLinks      []LinkItem          `json:"navLinks,omitempty"`
	FooterLinks   []LinkItem          `json:"footerLinks,omitempty"`
	Breadcrumbs   []BreadcrumbItem    `json:"breadcrumbs,omitempty"`

	MainTextContent *string     `json:"mainTextContent,omitempty"`
	Enrichment      *Enrichment `json:"enrichment,omitempty"`

	FetchStage FetchStage `json:"fetchStage,omitempty"`
	Rendered   bool       `json:"rendered,omitempty"`
	// TitleFallback marks a title derived from the URL or main text rather
	// than the document itself.
	TitleFallback bool    `json:"titleFallback,omitempty"`
	Error         *string `json:"error,omitempty"`

	// ScrapedAt is provenance only; record equality excludes it.
	ScrapedAt time.Time `json:"scrapedAt"`
}

// NewPageRecord creates a record for a URL with the unknown type preset
func NewPageRecord(url string) *PageRecord {
	return &PageRecord{
		URL:           url,
		PageTypeGuess: PageTypeUnknown,
		ScrapedAt:     time.Now().UTC(),
	}
}

// NewErrorRecord creates the terminal error record for a URL. This is the
// only failure shape that crosses the package boundary; callers receive it
// as a value, never as a panic.
func NewErrorRecord(url, message string) *PageRecord {
	rec := NewPageRecord(url)
	rec.PageTypeGuess = PageTypeError
	rec.Error = &message
	return rec
}

// EnsureProduct returns the product payload, allocating it on first use
func (r *PageRecord) EnsureProduct() *ProductInfo {
	if r.Product == nil {
		r.Product = &ProductInfo{}
	}
	return r.Product
}

// EnsureBlog returns the blog payload, allocating it on first use
func (r *PageRecord) EnsureBlog() *BlogInfo {
	if r.Blog == nil {
		r.Blog = &BlogInfo{}
	}
	return r.Blog
}

// EnsureCategory returns the category payload, allocating it on first use
func (r *PageRecord) EnsureCategory() *CategoryInfo {
	if r.Category == nil {
		r.Category = &CategoryInfo{}
	}
	return r.Category
}

// HasImage reports whether an image with the given absolute URL is present
func (r *PageRecord) HasImage(src string) bool {
	for _, img := range r.Images {
		if img.Src == src {
			return true
		}
	}
	return false
}

// AddImage appends an image if its source URL has not been seen yet.
// First occurrence wins; later duplicates keep the original metadata.
func (r *PageRecord) AddImage(img ImageItem) bool {
	if img.Src == "" || r.HasImage(img.Src) {
		return false
	}
	r.Images = append(r.Images, img)
	return true
}

// StringPtr returns a pointer to s, or nil when s is empty. It enforces the
// "nullable means not found" invariant at assignment sites.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringVal returns the value behind p, or "" when p is nil
func StringVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
