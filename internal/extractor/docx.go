package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type wordDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docBody  `xml:"body"`
}

type docBody struct {
	Paragraphs []docParagraph `xml:"p"`
}

type docParagraph struct {
	Runs []docRun `xml:"r"`
}

type docRun struct {
	Text string `xml:"t"`
}

func extractDOCX(data []byte) (string, *Failure) {
	reader := bytes.NewReader(data)

	zipReader, err := zip.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", &Failure{Reason: ReasonCorruptOrEncrypted, Err: fmt.Errorf("failed to read DOCX as ZIP: %w", err)}
	}

	var documentFile *zip.File
	for _, file := range zipReader.File {
		if file.Name == "word/document.xml" {
			documentFile = file
			break
		}
	}

	if documentFile == nil {
		return "", &Failure{Reason: ReasonCorruptOrEncrypted, Err: fmt.Errorf("document.xml not found in DOCX")}
	}

	xmlFile, err := documentFile.Open()
	if err != nil {
		return "", &Failure{Reason: ReasonCorruptOrEncrypted, Err: fmt.Errorf("failed to open document.xml: %w", err)}
	}
	defer xmlFile.Close()

	xmlData, err := io.ReadAll(xmlFile)
	if err != nil {
		return "", &Failure{Reason: ReasonUnknown, Err: fmt.Errorf("failed to read document.xml: %w", err)}
	}

	var doc wordDocument
	if err := xml.Unmarshal(xmlData, &doc); err != nil {
		return "", &Failure{Reason: ReasonCorruptOrEncrypted, Err: fmt.Errorf("failed to parse document.xml: %w", err)}
	}

	var textBuilder strings.Builder
	for _, para := range doc.Body.Paragraphs {
		for _, run := range para.Runs {
			textBuilder.WriteString(run.Text)
		}
		textBuilder.WriteString("\n")
	}

	return strings.TrimSpace(textBuilder.String()), nil
}
