package upload

// Magic byte signatures checked against the head of each persisted file.
var (
	// %PDF-
	pdfSignature = []byte{0x25, 0x50, 0x44, 0x46, 0x2D}

	// PK zip containers (docx/xlsx/pptx are zip packages)
	zipSignatures = [][]byte{
		{0x50, 0x4B, 0x03, 0x04}, // standard
		{0x50, 0x4B, 0x05, 0x06}, // empty archive
		{0x50, 0x4B, 0x07, 0x08}, // spanned
	}

	// OLE compound file header (legacy doc/xls/ppt)
	oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Class selects which document family an endpoint accepts.
type Class int

const (
	ClassPDF Class = iota
	ClassWord
	ClassExcel
	ClassPowerPoint
)

func (c Class) extensions() []string {
	switch c {
	case ClassWord:
		return []string{".doc", ".docx"}
	case ClassExcel:
		return []string{".xls", ".xlsx"}
	case ClassPowerPoint:
		return []string{".ppt", ".pptx"}
	default:
		return []string{".pdf"}
	}
}

func (c Class) signatures() [][]byte {
	if c == ClassPDF {
		return [][]byte{pdfSignature}
	}
	sigs := make([][]byte, 0, len(zipSignatures)+1)
	sigs = append(sigs, zipSignatures...)
	return append(sigs, oleSignature)
}

// maxSignatureLen bounds the header read.
const maxSignatureLen = 8
