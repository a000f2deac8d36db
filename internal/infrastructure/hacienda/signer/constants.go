// Constantes para firma XAdES-EPES de comprobantes electrónicos.

package signer

// Política de firma de la DGT (obligatoria para XAdES-EPES).
const (
	SignaturePolicyURL = "https://www.hacienda.go.cr/ATV/ComprobanteElectronico/docs/esquemas/2016/v4.2/Resolucion_Comprobantes_Electronicos_DGT-R-48-2016.pdf"
)

// SigPolicyHashDigest es el SHA-256 del PDF de la política de firma (Base64).
var SigPolicyHashDigest = "0h7Q3dFHhu0bHbcZEgVc07cEcDlquUeG08HG6Iototo="

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES     = "http://uri.etsi.org/01903/v1.3.2#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2000/09/xmldsig#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)
