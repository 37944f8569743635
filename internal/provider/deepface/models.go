package deepface

// RepresentRequest for POST /represent
type RepresentRequest struct {
	Img              string `json:"img"`              // data URI, base64 encoded JPEG
	Model            string `json:"model_name"`       // "ArcFace", "Facenet512", etc
	Detector         string `json:"detector_backend"` // "mtcnn", "retinaface", etc
	EnforceDetection bool   `json:"enforce_detection"`
	Align            bool   `json:"align"`
}

// RepresentResponse from POST /represent
type RepresentResponse struct {
	Results []RepresentResult `json:"results"`
}

type RepresentResult struct {
	Embedding      []float64  `json:"embedding"`
	FacialArea     FacialArea `json:"facial_area"`
	FaceConfidence float64    `json:"face_confidence"`
}

// FacialArea is in pixels. Eye and nose positions are [x, y] pairs and are
// only reported by detectors that locate them (mtcnn, retinaface, yunet...).
type FacialArea struct {
	X        int         `json:"x"`
	Y        int         `json:"y"`
	W        int         `json:"w"`
	H        int         `json:"h"`
	LeftEye  *[2]float64 `json:"left_eye"`
	RightEye *[2]float64 `json:"right_eye"`
	Nose     *[2]float64 `json:"nose"`
}
