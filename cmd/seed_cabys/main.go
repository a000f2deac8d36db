// seed_cabys genera un script SQL para poblar el catálogo CAByS (Catálogo de
// Bienes y Servicios) a partir del CSV oficial publicado por el BCCR.
//
// Uso: go run ./cmd/seed_cabys [ruta/cabys.csv]
// Por defecto busca cabys.csv en el directorio actual.
// Escribe: internal/infrastructure/postgres/migrations/010_seed_cabys.sql
//
// El CSV trae columnas: código (13 dígitos), descripción e impuesto (% IVA).
// Algunas publicaciones vienen en ISO-8859-1; se detecta por el BOM ausente y
// se transcodifica a UTF-8.
package main

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type cabysEntry struct {
	code        string
	description string
	vatRate     string
}

func main() {
	csvPath := "cabys.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	entries, err := parseCabys(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "El CSV no contiene filas de CAByS")
		os.Exit(1)
	}

	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "010_seed_cabys.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	w.WriteString("-- Catálogo CAByS (código de 13 dígitos, descripción y tarifa de IVA)\n")
	w.WriteString("-- Generado desde el CSV oficial del BCCR\n\n")
	for _, e := range entries {
		fmt.Fprintf(w, "INSERT INTO cabys_codes (code, description, vat_rate) VALUES ('%s', '%s', %s)\n",
			e.code, escapeSQL(e.description), e.vatRate)
		w.WriteString("ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description, vat_rate = EXCLUDED.vat_rate;\n")
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generado %s: %d códigos CAByS\n", outPath, len(entries))
}

// parseCabys lee el CSV completo. Se queda con la última columna de
// "Categoría" como descripción y la columna de impuesto como tarifa.
func parseCabys(f *os.File) ([]cabysEntry, error) {
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		// Publicación vieja en ISO-8859-1
		decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
		if err != nil {
			return nil, err
		}
		raw = decoded
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = ';'
	r.FieldsPerRecord = -1 // el número de columnas varía entre versiones del catálogo

	var entries []cabysEntry
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 3 {
			continue
		}
		code := strings.TrimSpace(record[0])
		if len(code) != 13 || !isDigits(code) {
			continue // encabezado o fila de categoría intermedia
		}
		desc := strings.TrimSpace(record[1])
		rate := normalizeRate(record[len(record)-1])
		if desc == "" || rate == "" {
			continue
		}
		entries = append(entries, cabysEntry{code: code, description: desc, vatRate: rate})
	}
	return entries, nil
}

// normalizeRate convierte "13%", "13,00" o "Exento" al número que va en SQL.
func normalizeRate(s string) string {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if strings.EqualFold(s, "exento") {
		return "0"
	}
	s = strings.ReplaceAll(s, ",", ".")
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return ""
		}
	}
	if s == "" {
		return ""
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
