// Package hacienda: interfaz para firma digital de comprobantes XML (XAdES-EPES).

package hacienda

import "crypto/tls"

// Signer firma un comprobante XML y devuelve el XML con la firma inyectada
// como último hijo del elemento raíz.
type Signer interface {
	// Sign toma el XML del comprobante (sin firma) y el certificado con llave
	// privada, y retorna el XML con el nodo ds:Signature incorporado.
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}
