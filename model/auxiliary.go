package model

// DR11Row is the subset of an XMM DR11 catalog row the estimator needs
// to chain from a source name to a detection identifier.
type DR11Row struct {
	IAUName string
	DetID   int64
}

// SpectralFitRow carries the published spectral fit for one detection,
// as distributed with the Xmm2Athena value-added catalog. LogNhMed is
// log10 of the hydrogen column in cm^-2.
type SpectralFitRow struct {
	DetID         int64
	PhotonIndex   float64
	PhotonIndexLo float64
	PhotonIndexHi float64
	LogNhMed      float64
}

// MasterJoin records which master-catalog rows a source participates
// in. A source present in the master table has been detected by more
// than one mission, which the variability classifier treats as a
// long-term variability flag.
type MasterJoin struct {
	SourceName string
	MasterID   int64
}

// NhSample is one line of sight of a hydrogen column density map.
type NhSample struct {
	Position SkyCoord
	Nh       float64 // cm^-2
}
