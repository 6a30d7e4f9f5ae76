package domain

// Payload is the typed work order attached to a JobRecord. Each variant
// carries absolute input paths already vetted by the upload validator;
// handlers re-check them against the uploads root before touching disk.
type Payload interface {
	Kind() JobKind
}

type MergePayload struct {
	Inputs []string
}

func (MergePayload) Kind() JobKind { return KindMerge }

// SplitPayload with empty Pages splits every page into its own document;
// otherwise each comma token of Pages becomes one output document.
type SplitPayload struct {
	Input string
	Pages string
}

func (SplitPayload) Kind() JobKind { return KindSplit }

// CompressPayload presets map onto renderer quality levels:
// smallest, balanced, high.
type CompressPayload struct {
	Input  string
	Preset string
}

func (CompressPayload) Kind() JobKind { return KindCompress }

type ProtectPayload struct {
	Input    string
	Password string
}

func (ProtectPayload) Kind() JobKind { return KindProtect }

type UnlockPayload struct {
	Input    string
	Password string
}

func (UnlockPayload) Kind() JobKind { return KindUnlock }

type RemovePagesPayload struct {
	Input string
	Pages string
}

func (RemovePagesPayload) Kind() JobKind { return KindRemovePages }

// RotatePayload rotates Pages (all pages when empty) clockwise by Angle,
// which must be a multiple of 90.
type RotatePayload struct {
	Input string
	Angle int
	Pages string
}

func (RotatePayload) Kind() JobKind { return KindRotate }

// OrganizePayload reorders pages; Order must be a permutation of 1..N.
type OrganizePayload struct {
	Input string
	Order []int
}

func (OrganizePayload) Kind() JobKind { return KindOrganize }

// CropPayload margins are measured in points from each edge when Unit is
// "pt", or as a fraction of the page dimension when Unit is "percent".
type CropPayload struct {
	Input  string
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
	Unit   string
}

func (CropPayload) Kind() JobKind { return KindCrop }

// ConvertPayload covers the six office conversions. Op selects the
// direction and target format.
type ConvertPayload struct {
	Op    JobKind
	Input string
}

func (p ConvertPayload) Kind() JobKind { return p.Op }

// FromHTMLPayload renders inline HTML. URL is kept only so the handler
// can refuse it; remote fetching is never performed.
type FromHTMLPayload struct {
	HTML string
	URL  string
}

func (FromHTMLPayload) Kind() JobKind { return KindFromHTML }

// RepairPayload method is one of quick, deep, auto.
type RepairPayload struct {
	Input  string
	Method string
}

func (RepairPayload) Kind() JobKind { return KindRepair }

type WatermarkPayload struct {
	Input    string
	Text     string
	FontSize float64
	Opacity  float64
}

func (WatermarkPayload) Kind() JobKind { return KindWatermark }

type CVExperience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Period      string `json:"period"`
	Description string `json:"description"`
}

type CVEducation struct {
	Degree string `json:"degree"`
	School string `json:"school"`
	Period string `json:"period"`
}

// CVPayload is decoded straight from the request body, hence the tags.
type CVPayload struct {
	FullName   string         `json:"fullName"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	Location   string         `json:"location"`
	Summary    string         `json:"summary"`
	Experience []CVExperience `json:"experience"`
	Education  []CVEducation  `json:"education"`
	Skills     []string       `json:"skills"`
	Language   string         `json:"language"`
}

func (CVPayload) Kind() JobKind { return KindCVGenerate }
